package action_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/reflector/pkg/action"
)

func TestInferSchema(t *testing.T) {
	assert.Nil(t, action.InferSchema[any]())
	assert.Nil(t, action.InferSchema[json.RawMessage]())
	assert.Nil(t, action.InferSchema[struct{}]())

	s := action.InferSchema[string]()
	if assert.NotNil(t, s) {
		assert.Equal(t, "string", s.Type)
		assert.Empty(t, s.Version)
	}

	s = action.InferSchema[*greetInput]()
	if assert.NotNil(t, s) {
		assert.Equal(t, "object", s.Type)
		assert.Empty(t, s.ID)
	}
}

func TestToJSONSchema(t *testing.T) {
	res, err := action.ToJSONSchema(nil, nil)
	assert.NoError(t, err)
	assert.Nil(t, res)

	pre := json.RawMessage(`{"type":"boolean"}`)
	res, err = action.ToJSONSchema(nil, pre)
	assert.NoError(t, err)
	assert.Equal(t, pre, res)

	res, err = action.ToJSONSchema(action.InferSchema[int](), pre)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"type":"integer"}`, string(res))
}

func TestValidateJSON(t *testing.T) {
	s, err := action.CompileSchema(json.RawMessage(
		`{"type":"object","properties":{"n":{"type":"integer"}}}`,
	))
	assert.NoError(t, err)

	assert.NoError(t, action.ValidateJSON(s, json.RawMessage(`{"n":1}`)))
	assert.Error(t, action.ValidateJSON(s, json.RawMessage(`{"n":"x"}`)))
	assert.Error(t, action.ValidateJSON(s, nil))
	assert.Error(t, action.ValidateJSON(s, json.RawMessage(`{`)))
}
