package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPresence_Recompute(t *testing.T) {
	reg := NewRegistry()
	p := NewPresence()

	for _, sid := range []string{"s1", "s2", "s3", "s4"} {
		reg.Bind(coreSID(sid), &stubConn{})
	}
	reg.SetUsername("s1", "bob")
	reg.SetUsername("s2", "alice")
	reg.SetUsername("s3", "bob")

	for _, sid := range []string{"s1", "s2", "s3", "s4"} {
		p.Join("abc", coreSID(sid))
	}

	assert.Equal(t, []string{"alice", "bob"}, p.Recompute("abc", reg), "distinct, sorted, unnamed excluded")
	assert.Equal(t, 4, p.Count("abc"))

	for _, sid := range []string{"s3", "s1", "s2", "s4"} {
		p.Leave("abc", coreSID(sid))
	}
	got := p.Recompute("abc", reg)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Empty(t, p.Members("abc"))
}
