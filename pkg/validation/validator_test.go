package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/dd0wney/cluso-graphview/pkg/visualization"
)

func validRecord() visualization.RelationRecord {
	return visualization.RelationRecord{
		ID:   "rel-1",
		Kind: "DEPENDS_ON",
		Source: visualization.EntityRef{
			ID: "ci-1", Name: "Billing API", Status: "ACTIVE", Category: "Service",
		},
		Target: visualization.EntityRef{
			ID: "ci-2", Name: "Postgres", Status: "MAINTENANCE",
		},
	}
}

func TestValidateRecord(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(r *visualization.RelationRecord)
		wantErr   bool
		errSubstr string
	}{
		{"valid", func(r *visualization.RelationRecord) {}, false, ""},
		{"self loop", func(r *visualization.RelationRecord) { r.Target = r.Source }, false, ""},
		{"lower case kind", func(r *visualization.RelationRecord) { r.Kind = "runs_on" }, false, ""},
		{"missing kind", func(r *visualization.RelationRecord) { r.Kind = "" }, true, "Kind"},
		{"kind with spaces", func(r *visualization.RelationRecord) { r.Kind = "DEPENDS ON" }, true, "Kind"},
		{"missing source id", func(r *visualization.RelationRecord) { r.Source.ID = "" }, true, "Source.ID"},
		{"missing target id", func(r *visualization.RelationRecord) { r.Target.ID = "" }, true, "Target.ID"},
		{"slash in id", func(r *visualization.RelationRecord) { r.Target.ID = "a/b" }, true, "Target"},
		{"long name", func(r *visualization.RelationRecord) { r.Source.Name = strings.Repeat("x", 257) }, true, "must not exceed 256"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(&rec)
			err := ValidateRecord(&rec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateRecord() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), tt.errSubstr) {
				t.Errorf("error %q does not mention %q", err, tt.errSubstr)
			}
		})
	}
}

func TestValidateRecord_Nil(t *testing.T) {
	if err := ValidateRecord(nil); err == nil {
		t.Error("Expected error for nil record")
	}
}

func TestFilterRecords(t *testing.T) {
	good := validRecord()
	bad := validRecord()
	bad.ID = "rel-bad"
	bad.Kind = ""

	valid, rejected := FilterRecords([]visualization.RelationRecord{good, bad, good})

	if len(valid) != 2 {
		t.Errorf("Expected 2 valid records, got %d", len(valid))
	}
	if len(rejected) != 1 {
		t.Fatalf("Expected 1 rejected record, got %d", len(rejected))
	}
	if rejected[0].Index != 1 || rejected[0].ID != "rel-bad" {
		t.Errorf("Unexpected rejection %+v", rejected[0])
	}
	if errors.Unwrap(rejected[0]) == nil {
		t.Error("RecordError should unwrap to the cause")
	}
}

func TestValidateNodeID(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{"ci-42", false},
		{"7f9c1c2e-8a0e-4c1e-9d0e-3c1e2a7b9f00", false},
		{"", true},
		{"has space", true},
		{"a/b", true},
		{strings.Repeat("x", 129), true},
	}

	for _, tt := range tests {
		if err := ValidateNodeID(tt.id); (err != nil) != tt.wantErr {
			t.Errorf("ValidateNodeID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
		}
	}
}

func TestValidateRecordCount(t *testing.T) {
	if err := ValidateRecordCount(MaxRecords); err != nil {
		t.Errorf("Expected limit to be accepted: %v", err)
	}
	if err := ValidateRecordCount(MaxRecords + 1); err == nil {
		t.Error("Expected error above limit")
	}
}

func TestValidateStruct(t *testing.T) {
	type message struct {
		Type  string `validate:"required,oneof=zoom_in zoom_out"`
		Width int    `validate:"omitempty,min=1,max=100"`
	}

	if err := ValidateStruct(message{Type: "zoom_in"}); err != nil {
		t.Fatalf("Expected valid message, got %v", err)
	}

	tests := []struct {
		name string
		msg  message
		want string
	}{
		{"missing type", message{}, "field is required"},
		{"unknown type", message{Type: "spin"}, "must be one of zoom_in zoom_out"},
		{"too wide", message{Type: "zoom_out", Width: 101}, "must not exceed 100"},
	}
	for _, tt := range tests {
		err := ValidateStruct(tt.msg)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: error = %v, want %q", tt.name, err, tt.want)
		}
	}
}
