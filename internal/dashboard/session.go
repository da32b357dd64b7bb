package dashboard

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/omlean/opboard/internal/board"
)

const sessionCookie = "opboard_session"

// sessionManager signs and verifies the login cookie. The key is generated
// per process, so sessions do not survive a server restart.
type sessionManager struct {
	key []byte
}

func newSessionManager() *sessionManager {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(fmt.Sprintf("dashboard: session key: %v", err))
	}
	return &sessionManager{key: key}
}

// issue writes the session cookie for an authenticated actor.
func (m *sessionManager) issue(c *gin.Context, actor board.Actor) {
	payload := strings.Join([]string{
		base64.RawURLEncoding.EncodeToString([]byte(actor.User)),
		base64.RawURLEncoding.EncodeToString([]byte(actor.Role)),
		base64.RawURLEncoding.EncodeToString([]byte(actor.AssignedStage)),
	}, ".")
	value := payload + "." + m.sign(payload)
	c.SetCookie(sessionCookie, value, 12*60*60, "/", "", false, true)
}

// clear drops the session cookie.
func (m *sessionManager) clear(c *gin.Context) {
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
}

// actor reads and verifies the session cookie. ok is false for missing,
// malformed or tampered cookies.
func (m *sessionManager) actor(c *gin.Context) (board.Actor, bool) {
	value, err := c.Cookie(sessionCookie)
	if err != nil {
		return board.Actor{}, false
	}
	parts := strings.Split(value, ".")
	if len(parts) != 4 {
		return board.Actor{}, false
	}
	payload := strings.Join(parts[:3], ".")
	if !hmac.Equal([]byte(m.sign(payload)), []byte(parts[3])) {
		return board.Actor{}, false
	}
	user, err1 := base64.RawURLEncoding.DecodeString(parts[0])
	role, err2 := base64.RawURLEncoding.DecodeString(parts[1])
	stage, err3 := base64.RawURLEncoding.DecodeString(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return board.Actor{}, false
	}
	return board.Actor{User: string(user), Role: string(role), AssignedStage: string(stage)}, true
}

func (m *sessionManager) sign(payload string) string {
	mac := hmac.New(sha256.New, m.key)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
