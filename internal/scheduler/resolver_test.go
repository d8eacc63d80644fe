package scheduler

import (
	"errors"
	"strings"
	"testing"

	"github.com/rowandev/caretab/internal/model"
)

func TestResolvePresetExpressions(t *testing.T) {
	tests := []struct {
		freq model.Frequency
		want string
	}{
		{model.FrequencyDaily, "0 2 * * *"},
		{model.FrequencyWeekly, "0 2 * * 0"},
		{model.FrequencyMonthly, "0 2 1 * *"},
	}
	for _, tt := range tests {
		job := &model.BackupJob{Frequency: tt.freq}
		got, err := ResolveCronExpression(job)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.freq, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: expression = %q, want %q", tt.freq, got, tt.want)
		}
	}
}

func TestResolveCustomExpression(t *testing.T) {
	job := &model.BackupJob{Frequency: model.FrequencyCustom, CronExpression: "*/30 * * * *"}
	got, err := ResolveCronExpression(job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "*/30 * * * *" {
		t.Errorf("expression = %q, want the job's own", got)
	}
}

func TestResolveCustomMissingExpression(t *testing.T) {
	job := &model.BackupJob{Frequency: model.FrequencyCustom}
	_, err := ResolveCronExpression(job)
	if !errors.Is(err, ErrMissingCronExpression) {
		t.Fatalf("error = %v, want ErrMissingCronExpression", err)
	}
}

func TestResolveUnknownFrequency(t *testing.T) {
	job := &model.BackupJob{Frequency: "hourly"}
	if _, err := ResolveCronExpression(job); err == nil {
		t.Fatal("expected error for unknown frequency")
	}
}

func TestPresetExpressionsIgnoreCustomField(t *testing.T) {
	// A leftover expression on a preset job must not leak into the schedule.
	job := &model.BackupJob{Frequency: model.FrequencyDaily, CronExpression: "*/1 * * * *"}
	got, err := ResolveCronExpression(job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != dailyExpr {
		t.Errorf("expression = %q, want %q", got, dailyExpr)
	}
}

func TestDescribeSchedule(t *testing.T) {
	tests := []struct {
		job  model.BackupJob
		want string
	}{
		{model.BackupJob{Frequency: model.FrequencyDaily}, "every day"},
		{model.BackupJob{Frequency: model.FrequencyWeekly}, "Sunday"},
		{model.BackupJob{Frequency: model.FrequencyMonthly}, "day 1"},
		{model.BackupJob{Frequency: model.FrequencyCustom, CronExpression: "*/30 * * * *"}, "*/30 * * * *"},
		{model.BackupJob{Frequency: model.FrequencyCustom}, "no expression"},
	}
	for _, tt := range tests {
		got := DescribeSchedule(&tt.job)
		if !strings.Contains(got, tt.want) {
			t.Errorf("%s: description %q does not mention %q", tt.job.Frequency, got, tt.want)
		}
	}
}
