package permissions

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestProviderGrantRevoke(t *testing.T) {
	p := NewProvider([]string{"com.example.nav", " ", "com.example.media"}, zaptest.NewLogger(t))

	assert.Equal(t, []string{"com.example.media", "com.example.nav"}, p.List())
	assert.True(t, p.CanReceiveDuckingEvents("com.example.nav"))
	assert.False(t, p.CanReceiveDuckingEvents("com.example.game"))

	assert.True(t, p.Grant("com.example.game"))
	assert.True(t, p.CanReceiveDuckingEvents("com.example.game"))

	assert.True(t, p.Revoke("com.example.nav"))
	assert.False(t, p.Revoke("com.example.nav"))
	assert.False(t, p.CanReceiveDuckingEvents("com.example.nav"))
}

func TestProviderAudit(t *testing.T) {
	p := NewProvider([]string{"com.example.nav"}, nil)

	p.CanReceiveDuckingEvents("com.example.nav")
	p.CanReceiveDuckingEvents("com.example.game")
	p.CanReceiveDuckingEvents("com.example.nav")

	all := p.Audit("", 0)
	assert.Len(t, all, 3)
	assert.Equal(t, "com.example.nav", all[0].PackageName)
	assert.Equal(t, "com.example.game", all[1].PackageName)
	assert.False(t, all[1].Allowed)
	assert.Equal(t, DuckingEvents, all[0].Permission)

	assert.Len(t, p.Audit("com.example.nav", 0), 2)
	assert.Len(t, p.Audit("", 1), 1)
}

func TestProviderAuditWraps(t *testing.T) {
	p := NewProvider(nil, nil)
	for i := 0; i < defaultAuditSize+10; i++ {
		p.CanReceiveDuckingEvents(fmt.Sprintf("pkg.%d", i))
	}

	entries := p.Audit("", 0)
	assert.Len(t, entries, defaultAuditSize)
	assert.Equal(t, fmt.Sprintf("pkg.%d", defaultAuditSize+9), entries[0].PackageName)
	assert.Equal(t, "pkg.10", entries[len(entries)-1].PackageName)
}
