package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_String(t *testing.T) {
	assert.Equal(t, "validation", KindValidation.String())
	assert.Equal(t, "not_found", KindNotFound.String())
	assert.Equal(t, "conflict", KindConflict.String())
	assert.Equal(t, "unexpected", KindUnexpected.String())
}

func TestError_Format(t *testing.T) {
	err := Validation("cart.negative_quantity", "cannot remove more than the cart holds")
	assert.Equal(t, "cart.negative_quantity: cannot remove more than the cart holds", err.Error())
}

func TestIsKind(t *testing.T) {
	err := NotFound("order.product_not_found", "product is not in the catalog")
	assert.True(t, IsKind(err, KindNotFound))
	assert.False(t, IsKind(err, KindValidation))

	wrapped := fmt.Errorf("load catalog: %w", err)
	assert.True(t, IsKind(wrapped, KindNotFound))

	assert.False(t, IsKind(errors.New("plain"), KindNotFound))
}

func TestIsKind_List(t *testing.T) {
	var list List
	list.Add(
		Validation("a", "first"),
		NotFound("b", "second"),
	)
	err := list.OrNil()
	assert.True(t, IsKind(err, KindValidation))
	assert.True(t, IsKind(err, KindNotFound))
	assert.False(t, IsKind(err, KindConflict))
}

func TestList_AddSkipsNil(t *testing.T) {
	var list List
	list.Add(nil, Validation("a", "boom"), nil)
	assert.Len(t, list, 1)
	assert.False(t, list.Empty())
}

func TestList_OrNil(t *testing.T) {
	var list List
	require.NoError(t, list.OrNil())
	assert.True(t, list.Empty())

	list.Add(Validation("a", "boom"))
	assert.Error(t, list.OrNil())
}

func TestList_ErrorFormat(t *testing.T) {
	var list List
	list.Add(Validation("a", "first"))
	assert.Equal(t, "a: first", list.Error())

	list.Add(NotFound("b", "second"))
	assert.Equal(t, "2 errors: a: first; b: second", list.Error())
}

func TestList_ErrorsIsSeesEntries(t *testing.T) {
	sentinel := Validation("stock.insufficient", "not enough stock")
	var list List
	list.Add(errors.New("unrelated"), sentinel)

	assert.ErrorIs(t, list.OrNil(), sentinel)

	var target *Error
	require.ErrorAs(t, list.OrNil(), &target)
	assert.Equal(t, "stock.insufficient", target.Code)
}
