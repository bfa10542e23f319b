package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ledgerly/ledgerly/internal/scheduler"
)

func TestWriteDistribution(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	dist := scheduler.Distribution{
		Allocations: []scheduler.Allocation{{
			Name:             "Card",
			InterestRate:     decimal.NewFromInt(42),
			RemainingBalance: decimal.NewFromInt(100),
			Minimum:          decimal.NewFromInt(50),
			Extra:            decimal.NewFromInt(50),
			Total:            decimal.NewFromInt(100),
		}},
		Summary: scheduler.DistributionSummary{
			TotalAvailable: decimal.NewFromInt(130),
			TotalMinimum:   decimal.NewFromInt(50),
			TotalExtra:     decimal.NewFromInt(50),
			Unallocated:    decimal.NewFromInt(30),
		},
	}
	if err := writeDistribution(cmd, dist); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Card", "42%", "minimum 50.00 + extra 50.00 = 100.00 of 130.00", "unallocated 30.00"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSchemaPrintsWithoutDatabase(t *testing.T) {
	var buf bytes.Buffer
	cmd := createSchemaCmd()
	cmd.SetOut(&buf)
	if err := runSchema(context.Background(), cmd, false); err != nil {
		t.Fatalf("schema: %v", err)
	}
	if !strings.Contains(buf.String(), "CREATE TABLE") {
		t.Fatalf("unexpected schema output:\n%s", buf.String())
	}
}
