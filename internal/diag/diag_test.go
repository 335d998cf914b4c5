package diag

import (
	"context"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
)

func TestTimingDisabledByDefault(t *testing.T) {
	t.Setenv(TimingEnvVar, "")
	tm := NewTiming(nil, "run-1")
	if tm.Enabled() {
		t.Fatalf("expected timing disabled when %s is unset", TimingEnvVar)
	}
	done := tm.Phase("noop")
	done()
	tm.LogThroughput(context.Background(), "noop", 10, time.Millisecond)
}

func TestTimingEnabledViaEnvVar(t *testing.T) {
	t.Setenv(TimingEnvVar, "1")
	tm := NewTiming(nil, "run-2")
	if !tm.Enabled() {
		t.Fatalf("expected timing enabled when %s is set", TimingEnvVar)
	}
	done := tm.Phase("work")
	time.Sleep(time.Millisecond)
	done()
}

func TestSchemaPrinterOnlyPrintsOnce(t *testing.T) {
	t.Setenv(SchemaEnvVar, "1")
	p := NewSchemaPrinter()
	if !p.enabled {
		t.Fatalf("expected schema printer enabled when %s is set", SchemaEnvVar)
	}
	schema := arrow.NewSchema(nil, nil)
	p.Print(nil, "updates", schema)
	p.Print(nil, "updates", schema)
}

func TestSchemaPrinterDisabledByDefault(t *testing.T) {
	t.Setenv(SchemaEnvVar, "")
	p := NewSchemaPrinter()
	if p.enabled {
		t.Fatalf("expected schema printer disabled when %s is unset", SchemaEnvVar)
	}
}

func TestNewRunIDIsUnique(t *testing.T) {
	a := NewRunID()
	b := NewRunID()
	if a == b {
		t.Fatalf("expected distinct run ids, got %s twice", a)
	}
}
