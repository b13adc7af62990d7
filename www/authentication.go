package www

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"tally/engine"
	"tally/engine/config"
	"tally/engine/db"
)

const (
	RoleAdmin = "admin"
	RoleTeam  = "team"

	authCookieName = "auth_token"
	authCookieAge  = 86400
)

var (
	conf *config.ConfigSettings
	le   *engine.LedgerEngine
)

func SetConfig(c *config.ConfigSettings) {
	conf = c
}

func SetEngine(e *engine.LedgerEngine) {
	le = e
}

type TallyJWTClaims struct {
	*jwt.RegisteredClaims
	UserInfo interface{}
}

type UserJWTData struct {
	Role     string
	TeamID   uint
	TeamName string
}

func create(sub string, userInfo interface{}) (string, error) {
	exp := time.Now().Add(time.Hour * 24)

	claims := &TallyJWTClaims{
		&jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		userInfo,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(conf.RequiredSettings.SessionSecret))
	if err != nil {
		return "", fmt.Errorf("create: sign token: %w", err)
	}

	return token, nil
}

func getClaimsFromToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(conf.RequiredSettings.SessionSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

func initCookies(router *gin.Engine) {
	router.Use(sessions.Sessions("tally", cookie.NewStore([]byte(conf.RequiredSettings.SessionSecret))))
}

// login exchanges a join code for a session. The shared admin code
// grants the admin role; any team join code grants the team role.
func login(c *gin.Context) {
	session := sessions.Default(c)

	type LoginForm struct {
		Code string `json:"code"`
	}
	var loginForm LoginForm
	if err := c.ShouldBindJSON(&loginForm); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing fields"})
		return
	}

	code := strings.TrimSpace(loginForm.Code)
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Join code can't be empty."})
		return
	}

	var userInfo UserJWTData
	if code == conf.RequiredSettings.AdminCode {
		userInfo = UserJWTData{Role: RoleAdmin}
	} else {
		team, err := db.GetTeamByCode(strings.ToUpper(code))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Incorrect join code."})
			return
		}
		userInfo = UserJWTData{Role: RoleTeam, TeamID: team.ID, TeamName: team.Name}
	}

	session.Set("id", userInfo.Role+":"+userInfo.TeamName)

	tok, err := create(userInfo.Role, userInfo)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate JWT"})
		return
	}

	c.SetCookie(authCookieName, tok, authCookieAge, "/", "", false, true)

	if err := session.Save(); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to save session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "role": userInfo.Role, "team_id": userInfo.TeamID, "team_name": userInfo.TeamName})
}

func logout(c *gin.Context) {
	session := sessions.Default(c)

	if cookie, err := c.Request.Cookie(authCookieName); cookie != nil && err == nil {
		c.SetCookie(authCookieName, "", -1, "/", "", false, true)
	}

	session.Delete("id")
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func me(c *gin.Context) {
	claims, err := contextGetClaims(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": claims.Role, "team_id": claims.TeamID, "team_name": claims.TeamName})
}

func isLoggedIn(c *gin.Context) (bool, error) {
	tok, err := c.Cookie(authCookieName)
	if err != nil {
		return false, nil
	}
	_, err = getClaimsFromToken(tok)
	if err != nil {
		return false, err
	}
	return true, nil
}

func contextGetClaims(c *gin.Context) (UserJWTData, error) {
	loggedIn, err := isLoggedIn(c)
	if err != nil {
		return UserJWTData{}, err
	}
	if !loggedIn {
		return UserJWTData{}, errors.New("not logged in")
	}

	tokenString, err := c.Cookie(authCookieName)
	if err != nil {
		return UserJWTData{}, err
	}

	claims, err := getClaimsFromToken(tokenString)
	if err != nil {
		return UserJWTData{}, err
	}

	if val, ok := claims["UserInfo"]; ok {
		userInfo, ok := val.(map[string]interface{})
		if !ok {
			return UserJWTData{}, errors.New("malformed user info")
		}
		data := UserJWTData{}
		if role, ok := userInfo["Role"].(string); ok {
			data.Role = role
		}
		if id, ok := userInfo["TeamID"].(float64); ok {
			data.TeamID = uint(id)
		}
		if name, ok := userInfo["TeamName"].(string); ok {
			data.TeamName = name
		}
		return data, nil
	}
	return UserJWTData{}, errors.New("no user info")
}

func authRequired(c *gin.Context) {
	status, err := isLoggedIn(c)
	if !status || err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.Next()
}

func adminAuthRequired(c *gin.Context) {
	claims, err := contextGetClaims(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if claims.Role != RoleAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	c.Next()
}
