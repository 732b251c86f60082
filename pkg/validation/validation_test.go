package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type person struct {
	name string
	age  int
}

func (p person) Validate(errs *Errors) {
	if p.name == "" {
		errs.Add("name", "can't be blank")
	}
	if p.age < 0 {
		errs.Add("age", "must be non-negative")
	}
}

type team struct {
	lead *person
}

func (t team) Validate(errs *Errors) {
	if t.lead == nil {
		Nested(errs, "lead", nil)
		return
	}
	Nested(errs, "lead", *t.lead)
}

func TestCollectsEveryViolation(t *testing.T) {

	errs := ErrorsOf(person{age: -1})
	assert.Equal(t, 2, errs.Len())
	assert.True(t, errs.On("name"))
	assert.True(t, errs.On("age"))
	assert.Equal(t, "name can't be blank, age must be non-negative", errs.Error())
	assert.Equal(t,
		[]string{"name can't be blank", "age must be non-negative"},
		errs.FullMessages())
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(person{name: "alice"}))
	assert.False(t, Valid(person{}))
}

func TestCheck(t *testing.T) {

	assert.Nil(t, Check(person{name: "alice"}))

	err := Check(person{})
	assert.NotNil(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Equal(t, 1, ve.Errors.Len())
	assert.Contains(t, err.Error(), "name can't be blank")
}

func TestNested(t *testing.T) {

	errs := ErrorsOf(team{lead: &person{age: -2}})
	assert.Equal(t, 2, errs.Len())
	assert.True(t, errs.On("lead.name"))
	assert.True(t, errs.On("lead.age"))

	errs = ErrorsOf(team{})
	assert.Equal(t, 1, errs.Len())
	assert.Equal(t, "lead is required", errs.Error())
}

func TestReset(t *testing.T) {
	errs := ErrorsOf(person{})
	assert.False(t, errs.Empty())
	errs.Reset()
	assert.True(t, errs.Empty())
}
