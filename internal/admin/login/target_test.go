package login

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveTarget(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		base string
		next string
		want string
	}{
		{name: "default", base: "/admin", next: "", want: "/admin"},
		{name: "prior page", base: "/admin", next: "/admin/stores/42?tab=ai", want: "/admin/stores/42?tab=ai"},
		{name: "keeps fragment", base: "/admin", next: "/admin/models#active", want: "/admin/models#active"},
		{name: "outside base", base: "/admin", next: "/other", want: "/admin"},
		{name: "prefix trick", base: "/admin", next: "/administrator", want: "/admin"},
		{name: "absolute url", base: "/admin", next: "https://evil.example/admin", want: "/admin"},
		{name: "scheme relative", base: "/admin", next: "//evil.example/admin", want: "/admin"},
		{name: "backslash", base: "/admin", next: "/admin\\..\\evil", want: "/admin"},
		{name: "dot segments", base: "/admin", next: "/admin/../etc", want: "/admin"},
		{name: "login page", base: "/admin", next: "/admin/login", want: "/admin"},
		{name: "login page trailing slash", base: "/admin", next: "/admin/login/", want: "/admin"},
		{name: "root base", base: "/", next: "/stores", want: "/stores"},
		{name: "empty base", base: "", next: "", want: "/"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, ResolveTarget(tc.base, NormalizeBase(tc.base)+"/login", tc.next))
		})
	}
}

func TestKeyedGuard(t *testing.T) {
	t.Parallel()

	g := NewKeyedGuard()
	release, ok := g.TryAcquire("sess-1")
	require.True(t, ok)
	require.True(t, g.InFlight("sess-1"))

	_, ok = g.TryAcquire("sess-1")
	require.False(t, ok)

	other, ok := g.TryAcquire("sess-2")
	require.True(t, ok)
	other()

	release()
	release()
	require.False(t, g.InFlight("sess-1"))
	_, ok = g.TryAcquire("sess-1")
	require.True(t, ok)
}
