package rbac

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePermission(t *testing.T) {
	cases := []struct {
		name  string
		base  string
		scope Scope
	}{
		{"clients_view_all", "clients_view", ScopeAll},
		{"clients_view_own", "clients_view", ScopeOwn},
		{"clients_view", "clients_view", ScopeUnscoped},
		{"_all", "_all", ScopeUnscoped},
		{"_own", "_own", ScopeUnscoped},
		{"mutual_settlements_view_individual", "mutual_settlements_view_individual", ScopeUnscoped},
		{"", "", ScopeUnscoped},
	}
	for _, tc := range cases {
		base, scope := ParsePermission(tc.name)
		require.Equal(t, tc.base, base, tc.name)
		require.Equal(t, tc.scope, scope, tc.name)
	}
}

func TestScopeApplyRoundTrip(t *testing.T) {
	for _, scope := range []Scope{ScopeUnscoped, ScopeAll, ScopeOwn} {
		base, parsed := ParsePermission(scope.Apply("orders_update"))
		require.Equal(t, "orders_update", base)
		require.Equal(t, scope, parsed)
	}
	require.Equal(t, "all", ScopeAll.String())
	require.Equal(t, "own", ScopeOwn.String())
	require.Equal(t, "unscoped", ScopeUnscoped.String())
}

func TestPermissionSet(t *testing.T) {
	set := NewPermissionSet("b", "a", "b", "")
	require.Equal(t, 2, set.Len())
	require.Equal(t, []string{"a", "b"}, set.Names())
	require.True(t, set.Has("a"))
	require.False(t, set.Has(""))
	require.True(t, set.HasAny("x", "b"))
	require.False(t, set.HasAny())

	merged := set.Union(NewPermissionSet("c"))
	require.Equal(t, []string{"a", "b", "c"}, merged.Names())
	require.Equal(t, 2, set.Len())

	var empty PermissionSet
	require.False(t, empty.Has("a"))
	require.Empty(t, empty.Names())
}
