package project

import "testing"

func TestStage_Index(t *testing.T) {
	for i, stage := range StageOrder {
		if got := stage.Index(); got != i {
			t.Errorf("%s.Index() = %d; want %d", stage, got, i)
		}
		if !stage.IsValid() {
			t.Errorf("%s.IsValid() = false", stage)
		}
	}
	if Stage("inception").IsValid() {
		t.Error(`Stage("inception").IsValid() = true`)
	}
	if got := Stage("inception").Index(); got != -1 {
		t.Errorf(`Stage("inception").Index() = %d; want -1`, got)
	}
}

func TestStatuses_IsValid(t *testing.T) {
	for _, s := range validationStatuses {
		if !s.IsValid() {
			t.Errorf("%s.IsValid() = false", s)
		}
	}
	if ValidationStatus("meh").IsValid() {
		t.Error(`ValidationStatus("meh").IsValid() = true`)
	}

	for _, s := range stageStatuses {
		if !s.IsValid() {
			t.Errorf("%s.IsValid() = false", s)
		}
	}
	if StageStatus("meh").IsValid() {
		t.Error(`StageStatus("meh").IsValid() = true`)
	}

	for _, s := range projectStatuses {
		if !s.IsValid() {
			t.Errorf("%s.IsValid() = false", s)
		}
	}
	if ProjectStatus("meh").IsValid() {
		t.Error(`ProjectStatus("meh").IsValid() = true`)
	}
}
