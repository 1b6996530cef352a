package domain

import (
	"fmt"
	"testing"
)

func TestValidationErrorsDetection(t *testing.T) {
	var errs ValidationErrors
	if errs.OrNil() != nil {
		t.Fatalf("empty list must be nil")
	}
	errs.Add("email", "wajib diisi")
	errs.Add("phone", "format tidak valid")

	wrapped := fmt.Errorf("intake: %w", errs.OrNil())
	if !IsValidation(wrapped) {
		t.Fatalf("wrapped ValidationErrors should be detected")
	}
	fields := FieldErrors(wrapped)
	if len(fields) != 2 || fields[0].Field != "email" || fields[1].Field != "phone" {
		t.Fatalf("unexpected fields: %+v", fields)
	}
}

func TestTransitionErrorIsNotConflict(t *testing.T) {
	err := TransitionError{Resource: "test_drive", From: "cancelled", Action: "approve"}
	if !IsTransition(err) {
		t.Fatalf("expected transition error")
	}
	if IsConflict(err) || IsValidation(err) {
		t.Fatalf("transition error must not match other kinds")
	}
	if err.Error() != "test_drive: aksi approve tidak diizinkan dari status cancelled" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestPaginationNormalize(t *testing.T) {
	p := Pagination{Page: 0, PageSize: 500}.Normalize()
	if p.Page != 1 || p.PageSize != 100 {
		t.Fatalf("unexpected normalize: %+v", p)
	}
	if off := (Pagination{Page: 3, PageSize: 20}).Offset(); off != 40 {
		t.Fatalf("offset = %d, want 40", off)
	}
}
