package httpgin

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vegnbio/restobook/internal/domain"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

func TestTargetFields(t *testing.T) {
	roomID := int64(4)

	tests := []struct {
		name    string
		in      targetFields
		want    domain.BookingTarget
		wantErr bool
	}{
		{name: "room", in: targetFields{RoomID: &roomID}, want: domain.RoomTarget(4)},
		{name: "whole venue", in: targetFields{FullRestaurant: true}, want: domain.WholeVenueTarget()},
		{name: "both", in: targetFields{RoomID: &roomID, FullRestaurant: true}, wantErr: true},
		{name: "neither", in: targetFields{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.target()
			if tt.wantErr {
				assert.True(t, domain.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer abc"))
	assert.Equal(t, "abc", bearerToken("  Bearer   abc  "))
	assert.Equal(t, "", bearerToken(""))
	assert.Equal(t, "", bearerToken("Basic abc"))
	assert.Equal(t, "", bearerToken("Bearer"))
}

func TestRespondErrMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{err: domain.Invalid("bad"), code: http.StatusBadRequest},
		{err: domain.Forbidden("no"), code: http.StatusForbidden},
		{err: domain.NotFound("event"), code: http.StatusNotFound},
		{err: domain.BadState("closed"), code: http.StatusConflict},
		{err: assert.AnError, code: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		respondErr(c, tt.err)
		assert.Equal(t, tt.code, w.Code, tt.err.Error())
	}
}

func TestRespondErrUnwrapsServiceOp(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	// Services wrap domain errors with an op prefix; the mapping must see
	// through the chain.
	wrapped := domain.BadState("event is full")
	respondErr(c, wrappedWithOp("service.events.Register", wrapped))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "event is full")
}

func wrappedWithOp(op string, err error) error {
	return &opError{op: op, err: err}
}

type opError struct {
	op  string
	err error
}

func (e *opError) Error() string { return e.op + ":" + e.err.Error() }
func (e *opError) Unwrap() error { return e.err }

func signedToken(t *testing.T, secret string, claims tokenClaims) string {
	t.Helper()

	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestAuthMiddleware(t *testing.T) {
	const secret = "test-secret"

	r := gin.New()
	r.Use(AuthMiddleware(secret))
	r.GET("/whoami", func(c *gin.Context) {
		actor, ok := actorFrom(c)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"anonymous": true})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": actor.UserID, "role": string(actor.Role)})
	})

	t.Run("valid token", func(t *testing.T) {
		tok := signedToken(t, secret, tokenClaims{
			UserID:      7,
			Email:       "chef@vegnbio.fr",
			Role:        string(domain.RoleRestaurateur),
			Restaurants: []int64{3},
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"user_id":7`)
		assert.Contains(t, w.Body.String(), `"role":"RESTAURATEUR"`)
	})

	t.Run("no token passes anonymous", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "anonymous")
	})

	t.Run("bad signature rejected", func(t *testing.T) {
		tok := signedToken(t, "other-secret", tokenClaims{
			UserID: 7,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("zero uid rejected", func(t *testing.T) {
		tok := signedToken(t, secret, tokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestMustIdentity(t *testing.T) {
	r := gin.New()
	r.GET("/protected", func(c *gin.Context) {
		if _, ok := mustIdentity(c); !ok {
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2026-09-15")
	require.NoError(t, err)
	assert.Equal(t, 2026, d.Year())
	assert.Equal(t, time.September, d.Month())

	_, err = parseDate("15/09/2026")
	assert.Error(t, err)
}

func bindJSON(t *testing.T, body string, out any) error {
	t.Helper()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c.ShouldBindJSON(out)
}

func TestReservationPayloadAcceptsMidnight(t *testing.T) {
	// Midnight encodes as zero seconds; the payload must not be mistaken
	// for one with an absent start time.
	var req CreateReservationRequest
	err := bindJSON(t, `{"full_restaurant":true,"party_size":2,"date":"2026-09-15",
		"start_time":"00:00:00","end_time":"00:45:00"}`, &req)
	require.NoError(t, err)

	require.NotNil(t, req.StartTime)
	require.NotNil(t, req.EndTime)
	assert.Equal(t, domain.TimeOfDay(0), *req.StartTime)
	assert.Equal(t, domain.TimeOfDay(45*60), *req.EndTime)

	t.Run("absent start time refused", func(t *testing.T) {
		var req CreateReservationRequest
		err := bindJSON(t, `{"full_restaurant":true,"party_size":2,"date":"2026-09-15",
			"end_time":"00:45:00"}`, &req)
		assert.Error(t, err)
	})

	t.Run("event payload accepts midnight too", func(t *testing.T) {
		var req EventRequest
		err := bindJSON(t, `{"restaurant_id":3,"title":"Nuit verte","date":"2026-09-15",
			"start_time":"00:00:00","end_time":"02:00:00"}`, &req)
		require.NoError(t, err)
		assert.Equal(t, domain.TimeOfDay(0), *req.StartTime)
	})
}

func TestWriteJSONWithCacheETag(t *testing.T) {
	r := gin.New()
	r.GET("/data", func(c *gin.Context) {
		writeJSONWithCache(c, http.StatusOK, gin.H{"v": 1}, "public, max-age=60", true)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/data", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/data", nil)
	req2.Header.Set("If-None-Match", etag)
	r.ServeHTTP(w2, req2)

	assert.Equal(t, http.StatusNotModified, w2.Code)
	assert.Empty(t, w2.Body.String())
}
