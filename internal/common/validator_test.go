package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatorFirst(t *testing.T) {
	v := NewValidator()
	v.Check(false, "title", "Please enter the title")
	v.Check(true, "description", "unused")
	v.Check(false, "tag", "Please add at least one tag")
	v.Check(false, "title", "ignored duplicate")

	assert.False(t, v.Valid())

	err := v.ValidationError()
	var verr ValidationError
	assert.True(t, errors.As(err, &verr))

	field, msg := verr.First()
	assert.Equal(t, "title", field)
	assert.Equal(t, "Please enter the title", msg)
	assert.Len(t, verr.Errors, 2)
}

func TestCheckStringLength(t *testing.T) {
	v := NewValidator()

	assert.True(t, v.CheckStringLength("héllo", 1, 5))
	assert.False(t, v.CheckStringLength("", 1, 5))
	assert.False(t, v.CheckStringLength("toolong", 1, 5))
}

func TestError(t *testing.T) {
	cause := errors.New("socket closed")
	err := fmt.Errorf("create: %w", NewError(ErrPersistenceFailed, "Error saving blog to database", cause))

	assert.True(t, errors.Is(err, ErrPersistenceFailed))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrRecordNotFound))
	assert.Equal(t, "Error saving blog to database", Message(err, "fallback"))
	assert.Equal(t, "fallback", Message(cause, "fallback"))
}

func TestWithDatabase(t *testing.T) {
	dsn, err := DatabaseURI("mongodb://localhost:27017", "testdb")
	assert.NoError(t, err)
	assert.Equal(t, "mongodb://localhost:27017/testdb", dsn)

	_, err = DatabaseURI("mongodb://localhost:27017/other", "testdb")
	assert.Error(t, err)
}
