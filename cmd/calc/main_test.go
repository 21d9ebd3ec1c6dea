package main

import (
	"testing"

	"github.com/woozymasta/geoarea/internal/config"
	"github.com/woozymasta/geoarea/internal/geo"

	"github.com/stretchr/testify/assert"
)

func TestFilterShapes(t *testing.T) {
	shapes := []config.Shape{{Name: "a"}, {Name: "b"}, {Name: "c"}, {Name: "a"}}

	assert.Equal(t, shapes, filterShapes(shapes, nil))

	got := filterShapes(shapes, []string{"c", "a", "missing"})
	assert.Equal(t, []config.Shape{{Name: "a"}, {Name: "c"}}, got)
}

func TestPointShape(t *testing.T) {
	shape, err := pointShape("field", []string{" 1 , 2 ", "3.5,-4"})
	assert.NoError(t, err)
	assert.Equal(t, config.Shape{Name: "field", Points: []string{"1,2", "3.5,-4"}}, shape)

	_, err = pointShape("field", []string{"1,2", "1,95"})
	assert.ErrorIs(t, err, geo.ErrInvalidLatitude)
	assert.ErrorContains(t, err, "entry 2")
}
