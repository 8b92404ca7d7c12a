package common

import (
	"testing"

	"github.com/bmizerany/assert"
)

func TestStringSet(t *testing.T) {
	ss := StringSet{}
	ss.Add("2")
	ss.Add("1")
	assert.T(t, ss.Contains("1"), "should contain")
	assert.T(t, ss.Contains("2"), "should contain")
	assert.Equal(t, []string{"1", "2"}, ss.ToList())
	ss.Remove("2")
	assert.T(t, !ss.Contains("2"), "should not contain")
	assert.Equal(t, []string{"1"}, ss.ToList())
}
