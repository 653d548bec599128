package domain

import (
	"errors"
	"testing"
)

func TestResultValidate(t *testing.T) {
	tests := []struct {
		name    string
		result  Result
		wantErr bool
	}{
		{name: "open range", result: Result{ID: "r", Conditions: []Condition{RangeCondition(nil, nil)}}},
		{name: "zero width", result: Result{ID: "r", Conditions: []Condition{RangeCondition(Bound(5), Bound(5))}}},
		{name: "inverted range", result: Result{ID: "r", Conditions: []Condition{RangeCondition(Bound(9), Bound(1))}}, wantErr: true},
		{name: "empty demographic", result: Result{ID: "r", Conditions: []Condition{DemographicCondition("")}}, wantErr: true},
		{name: "unknown kind", result: Result{ID: "r", Conditions: []Condition{{Kind: "mood"}}}, wantErr: true},
		{name: "default", result: Result{ID: "r", Conditions: []Condition{DefaultCondition()}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.result.Validate()
			if tc.wantErr && !errors.Is(err, ErrMalformedMatchCondition) {
				t.Fatalf("expected malformed condition error, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestTestValidateReportsDefaultsAndBalanceShape(t *testing.T) {
	test := Test{
		ID:   "t1",
		Kind: KindBalance,
		Questions: []Question{
			{ID: "q1", Choices: []Choice{{ID: "a"}, {ID: "b"}}},
			{ID: "q2", Choices: []Choice{{ID: "a"}, {ID: "b"}, {ID: "c"}}},
		},
		Results: []Result{
			{ID: "d1", Conditions: []Condition{DefaultCondition()}},
			{ID: "d2", Conditions: []Condition{DefaultCondition()}},
		},
	}
	errs := test.Validate()
	if len(errs) != 2 {
		t.Fatalf("expected 2 problems, got %d: %v", len(errs), errs)
	}
	if !errors.Is(errs[0], ErrNotBalanceQuestion) {
		t.Fatalf("expected balance shape error first, got %v", errs[0])
	}
}

func TestQuestionValidateBalance(t *testing.T) {
	q := Question{ID: "q1", Choices: []Choice{{ID: "a"}, {ID: "a"}}}
	if err := q.ValidateBalance(); !errors.Is(err, ErrNotBalanceQuestion) {
		t.Fatalf("expected duplicate choice rejection, got %v", err)
	}
}
