package tokens

import (
	"time"

	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/config"
	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// GenerateAccessToken creates a signed JWT access token for the user. Role
// claims are embedded so request paths can gate without a role-store read;
// the claims are a snapshot from mint time and go stale when a role
// mutation revokes the user's sessions.
func GenerateAccessToken(cfg *config.Config, u *models.User, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":   u.Sub,
		"name":  u.Name,
		"email": u.Email,
		"role":  u.Role,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(ttl).Unix(),
	}
	if u.SupporterRole != "" {
		claims["supporterRole"] = u.SupporterRole
	}
	if len(u.OwnedSupporterIDs) > 0 {
		claims["ownedSupporterIds"] = u.OwnedSupporterIDs
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(cfg.JWT.Secret))
}
