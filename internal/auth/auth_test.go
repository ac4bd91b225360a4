package auth

import (
	"crypto/sha512"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func digest(s string) string {
	sum := sha512.Sum512([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestTokenRegularUser(t *testing.T) {
	a := New(DefaultSalt, DefaultAdminLogin, DefaultAdminSalt)

	want := digest("horns&hoofs" + "h&f" + "Otus")
	assert.Equal(t, want, a.Token("horns&hoofs", "h&f"))
	assert.Equal(t, a.Token("horns&hoofs", "h&f"), a.Token("horns&hoofs", "h&f"), "tokens are reproducible")

	assert.True(t, a.Check(Identity{Account: "horns&hoofs", Login: "h&f", Token: want}))
	assert.False(t, a.Check(Identity{Account: "horns&hoofs", Login: "h&f", Token: strings.ToUpper(want)}), "hex match is case-sensitive")
	assert.False(t, a.Check(Identity{Account: "other", Login: "h&f", Token: want}))
	assert.False(t, a.Check(Identity{Account: "horns&hoofs", Login: "h&f", Token: ""}))
}

func TestTokenAdminHourWindow(t *testing.T) {
	a := New(DefaultSalt, DefaultAdminLogin, DefaultAdminSalt)
	clock := time.Date(2024, time.March, 9, 14, 5, 0, 0, time.Local)
	a.Now = func() time.Time { return clock }

	want := digest("2024030914" + "42")
	assert.Equal(t, want, a.Token("", "admin"))
	assert.Equal(t, want, a.Token("ignored", "admin"), "account does not affect admin tokens")
	assert.True(t, a.Check(Identity{Login: "admin", Token: want}))

	clock = clock.Add(50 * time.Minute)
	assert.True(t, a.Check(Identity{Login: "admin", Token: want}), "same hour")

	clock = clock.Add(10 * time.Minute)
	assert.False(t, a.Check(Identity{Login: "admin", Token: want}), "next hour")
}

func TestIsAdmin(t *testing.T) {
	a := New("s", "root", "x")
	assert.True(t, a.IsAdmin("root"))
	assert.False(t, a.IsAdmin("admin"))
	assert.False(t, a.IsAdmin(""))
}
