package runtimesettings

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"

	lterrors "github.com/Combine-Capital/logtable/pkg/errors"
	"github.com/Combine-Capital/logtable/pkg/logevent"
	"github.com/Combine-Capital/logtable/pkg/logging"
	"github.com/Combine-Capital/logtable/pkg/secrets"
)

type captureSink struct {
	events []logevent.Event
}

func (s *captureSink) Emit(ev logevent.Event)      { s.events = append(s.events, ev) }
func (s *captureSink) Flush(context.Context) error { return nil }
func (s *captureSink) Close(context.Context) error { return nil }

func TestPassthrough(t *testing.T) {
	in := secrets.Values{secrets.DatabaseLogging: "host=db"}

	out, err := Update(context.Background(), Passthrough{}, in, logging.New())
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if out[secrets.DatabaseLogging] != "host=db" || len(out) != 1 {
		t.Errorf("Update() = %v, want input unchanged", out)
	}

	out[secrets.Reporting] = "changed"
	if _, ok := in[secrets.Reporting]; ok {
		t.Error("result shares storage with the input")
	}
}

func TestDatabaseApply(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT key, value FROM "RuntimeSettings" ORDER BY key`)).
		WillReturnRows(pgxmock.NewRows([]string{"key", "value"}).
			AddRow(secrets.Reporting, "host=reporting").
			AddRow("Sink:BatchSize", "10"))

	in := secrets.Values{
		secrets.DatabaseLogging: "host=logs",
		secrets.Reporting:       "host=old",
	}
	out, err := NewDatabase(mock).Apply(context.Background(), in)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	want := secrets.Values{
		secrets.DatabaseLogging: "host=logs",
		secrets.Reporting:       "host=reporting",
		"Sink:BatchSize":        "10",
	}
	if len(out) != len(want) {
		t.Fatalf("Apply() = %v, want %v", out, want)
	}
	for k, v := range want {
		if out[k] != v {
			t.Errorf("%s = %q, want %q", k, out[k], v)
		}
	}
	if in[secrets.Reporting] != "host=old" {
		t.Error("input values mutated")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %s", err)
	}
}

func TestDatabaseQualifiedTable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "config"."settings"`)).
		WillReturnRows(pgxmock.NewRows([]string{"key", "value"}))

	out, err := NewDatabase(mock, "config", "settings").Apply(context.Background(), nil)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(out) != 0 {
		t.Errorf("Apply() = %v, want empty", out)
	}
}

func TestDatabaseEmptyKey(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectQuery("SELECT key, value").
		WillReturnRows(pgxmock.NewRows([]string{"key", "value"}).AddRow("", "x"))

	_, err = NewDatabase(mock).Apply(context.Background(), nil)
	if !lterrors.IsInvalidInput(err) {
		t.Errorf("Apply() error = %v, want InvalidInput", err)
	}
}

func TestUpdateFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectQuery("SELECT key, value").WillReturnError(&pgconn.PgError{Code: "08006"})

	sink := &captureSink{}
	log := logging.New(logging.WithSink(sink))

	_, err = Update(context.Background(), NewDatabase(mock), secrets.Values{}, log)
	if err == nil {
		t.Fatal("Update() error = nil")
	}
	if !lterrors.IsTemporary(err) {
		t.Errorf("error = %v, want Temporary", err)
	}

	if len(sink.events) != 1 {
		t.Fatalf("logged %d events, want 1", len(sink.events))
	}
	ev := sink.events[0]
	if ev.Level() != logevent.Error {
		t.Errorf("level = %v, want Error", ev.Level())
	}
	var pgErr *pgconn.PgError
	if !errors.As(ev.Err(), &pgErr) {
		t.Errorf("logged error = %v, want the driver error", ev.Err())
	}
}
