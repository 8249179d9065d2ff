package zookeeper

import (
	"reflect"
	"testing"
)

func TestSortBySequence_IgnoresProtectionPrefix(t *testing.T) {
	children := []string{
		"_c_f3a1-lock-0000000003",
		"_c_09bb-lock-0000000001",
		"_c_ffff-lock-0000000002",
	}
	sortBySequence(children)

	want := []string{
		"_c_09bb-lock-0000000001",
		"_c_ffff-lock-0000000002",
		"_c_f3a1-lock-0000000003",
	}
	if !reflect.DeepEqual(children, want) {
		t.Errorf("got %v, want %v", children, want)
	}
}
