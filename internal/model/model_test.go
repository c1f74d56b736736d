package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageMath(t *testing.T) {
	p := Page[int]{Page: 1, Limit: 10, Total: 25}
	assert.Equal(t, 3, p.TotalPages())
	assert.True(t, p.HasNext())
	next, ok := p.NextPage()
	require.True(t, ok)
	assert.Equal(t, 2, next)

	p.Page = 3
	assert.False(t, p.HasNext())
	_, ok = p.NextPage()
	assert.False(t, ok)

	// 恰好整除
	exact := Page[int]{Page: 2, Limit: 10, Total: 20}
	assert.Equal(t, 2, exact.TotalPages())
	assert.False(t, exact.HasNext())

	empty := Page[int]{Page: 1, Limit: 10, Total: 0}
	assert.Equal(t, 0, empty.TotalPages())
	assert.False(t, empty.HasNext())

	zeroLimit := Page[int]{Page: 1, Limit: 0, Total: 10}
	assert.Equal(t, 0, zeroLimit.TotalPages())
}

func TestRevealStatusWireFormat(t *testing.T) {
	cases := []struct {
		status RevealStatus
		wire   string
	}{
		{RevealAbsent, `"NONE"`},
		{RevealPending, `"PENDING"`},
		{RevealAccepted, `"ACCEPTED"`},
		{RevealRejected, `"REJECTED"`},
	}
	for _, c := range cases {
		b, err := json.Marshal(c.status)
		require.NoError(t, err)
		assert.Equal(t, c.wire, string(b))

		var got RevealStatus
		require.NoError(t, json.Unmarshal([]byte(c.wire), &got))
		assert.Equal(t, c.status, got)
	}

	var s RevealStatus
	assert.Error(t, json.Unmarshal([]byte(`"MAYBE"`), &s))

	// 空串按 NONE 处理
	require.NoError(t, json.Unmarshal([]byte(`""`), &s))
	assert.Equal(t, RevealAbsent, s)
}

func TestRevealStatusPredicates(t *testing.T) {
	assert.False(t, RevealAbsent.Exists())
	assert.True(t, RevealPending.Exists())
	assert.False(t, RevealPending.Terminal())
	assert.True(t, RevealAccepted.Terminal())
	assert.True(t, RevealRejected.Terminal())
}

func TestDecisionStatus(t *testing.T) {
	assert.Equal(t, RevealAccepted, DecisionAccepted.Status())
	assert.Equal(t, RevealRejected, DecisionRejected.Status())
}

func TestUserGatedAccess(t *testing.T) {
	u := User{UserSummary: UserSummary{ID: "1", Username: "bob"}}
	_, ok := u.Gated()
	assert.False(t, ok)

	g := &GatedFields{FullName: "Bob B"}
	revealed := u.WithGated(g)
	got, ok := revealed.Gated()
	require.True(t, ok)
	assert.Equal(t, "Bob B", got.FullName)

	// WithGated 返回副本，原值不受影响
	_, ok = u.Gated()
	assert.False(t, ok)
}

func TestUserJSONOmitsGatedWhenAbsent(t *testing.T) {
	u := User{UserSummary: UserSummary{ID: "1", Username: "bob"}, FollowersCount: 2}

	b, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(b), `"gated"`)
	assert.Contains(t, string(b), `"revealRequestStatus":"NONE"`)

	var back User
	require.NoError(t, json.Unmarshal(b, &back))
	_, ok := back.Gated()
	assert.False(t, ok)
	assert.Equal(t, 2, back.FollowersCount)
}

func TestUserJSONCarriesGatedWhenPresent(t *testing.T) {
	u := User{UserSummary: UserSummary{ID: "1", Username: "bob"}}
	u = u.WithGated(&GatedFields{
		FullName: "Bob B",
		Links:    []Link{{ID: "l1", Title: "blog", URL: "https://bob.example.com"}},
	})

	b, err := json.Marshal(u)
	require.NoError(t, err)

	var back User
	require.NoError(t, json.Unmarshal(b, &back))
	g, ok := back.Gated()
	require.True(t, ok)
	assert.Equal(t, "Bob B", g.FullName)
	require.Len(t, g.Links, 1)
	assert.Equal(t, "blog", g.Links[0].Title)
}
