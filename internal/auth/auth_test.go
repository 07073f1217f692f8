package auth_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	. "github.com/smartystreets/goconvey/convey"

	"pulseecho/backend/internal/auth"
	"pulseecho/backend/internal/config"
)

func authRouter(a *auth.Auth) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/auth/login", a.LoginHandler)
	router.POST("/auth/logout", a.LogoutHandler)
	admin := router.Group("/admin", a.Middleware())
	admin.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	return router
}

func login(router *gin.Engine, username, password string) *httptest.ResponseRecorder {
	body := `{"username": "` + username + `", "password": "` + password + `"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func sessionCookie(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == "pulseecho_admin_session" {
			return c
		}
	}
	return nil
}

func TestLogin(t *testing.T) {
	Convey("Given configured admin credentials", t, func() {
		router := authRouter(auth.New(config.AdminConfig{Username: "admin", Password: "s3cret"}))

		Convey("A correct login sets the session cookie", func() {
			rr := login(router, "admin", "s3cret")
			So(rr.Code, ShouldEqual, http.StatusOK)
			cookie := sessionCookie(rr)
			So(cookie, ShouldNotBeNil)
			So(cookie.Value, ShouldNotBeEmpty)
			So(cookie.HttpOnly, ShouldBeTrue)
		})

		Convey("A wrong password is rejected", func() {
			rr := login(router, "admin", "wrong")
			So(rr.Code, ShouldEqual, http.StatusUnauthorized)
			So(sessionCookie(rr), ShouldBeNil)
		})

		Convey("A missing field is a bad request", func() {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username": "admin"}`))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			So(rr.Code, ShouldEqual, http.StatusBadRequest)
		})
	})

	Convey("Given no configured credentials", t, func() {
		router := authRouter(auth.New(config.AdminConfig{}))

		Convey("Every login is rejected, even with empty fields matching", func() {
			rr := login(router, "anyone", "anything")
			So(rr.Code, ShouldEqual, http.StatusUnauthorized)
		})
	})
}

func TestMiddleware(t *testing.T) {
	Convey("Given a logged-in admin", t, func() {
		router := authRouter(auth.New(config.AdminConfig{Username: "admin", Password: "s3cret"}))
		cookie := sessionCookie(login(router, "admin", "s3cret"))
		So(cookie, ShouldNotBeNil)

		Convey("The session cookie grants access to admin routes", func() {
			req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
			req.AddCookie(cookie)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			So(rr.Code, ShouldEqual, http.StatusOK)
		})

		Convey("No cookie means no access", func() {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/ping", nil))
			So(rr.Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("A forged token is rejected", func() {
			req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
			req.AddCookie(&http.Cookie{Name: "pulseecho_admin_session", Value: "forged"})
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			So(rr.Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("Logout invalidates the session", func() {
			req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
			req.AddCookie(cookie)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			So(rr.Code, ShouldEqual, http.StatusOK)

			req = httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
			req.AddCookie(cookie)
			rr = httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			So(rr.Code, ShouldEqual, http.StatusUnauthorized)
		})
	})
}
