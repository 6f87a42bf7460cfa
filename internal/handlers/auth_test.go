package handlers

import (
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/yukikurage/taskpilot/internal/dto"
	"github.com/yukikurage/taskpilot/internal/models"
)

func (suite *APITestSuite) TestSignup_Success() {
	w := suite.request("POST", "/api/auth/signup", gin.H{
		"name":     "Robin Lane",
		"email":    "robin@example.com",
		"password": "secret1",
	}, nil)

	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var user dto.UserDTO
	suite.decode(w, &user)
	assert.Equal(suite.T(), "Robin Lane", user.Name)
	assert.Equal(suite.T(), models.RoleUser, user.Role)
	assert.NotEmpty(suite.T(), user.Avatar)

	// The new account is signed in
	me := suite.request("GET", "/api/auth/me", nil, w.Result().Cookies())
	assert.Equal(suite.T(), http.StatusOK, me.Code)
	assert.Contains(suite.T(), me.Body.String(), "robin@example.com")
}

func (suite *APITestSuite) TestSignup_RoleSlug() {
	w := suite.request("POST", "/api/auth/signup", gin.H{
		"name":     "Robin Lane",
		"email":    "robin@example.com",
		"password": "secret1",
		"role":     "project-manager",
	}, nil)

	suite.Require().Equal(http.StatusCreated, w.Code)
	var user dto.UserDTO
	suite.decode(w, &user)
	assert.Equal(suite.T(), models.RoleProjectManager, user.Role)
}

func (suite *APITestSuite) TestSignup_DuplicateEmail() {
	before, err := suite.store.Users.List(suite.ctx)
	suite.Require().NoError(err)

	w := suite.request("POST", "/api/auth/signup", gin.H{
		"name":     "Impostor",
		"email":    "user@example.com",
		"password": "secret1",
	}, nil)

	assert.Equal(suite.T(), http.StatusConflict, w.Code)
	var body errorBody
	suite.decode(w, &body)
	assert.Equal(suite.T(), "This email address is already in use.", body.Message)

	after, err := suite.store.Users.List(suite.ctx)
	suite.Require().NoError(err)
	assert.Len(suite.T(), after, len(before))
}

func (suite *APITestSuite) TestSignup_Validation() {
	w := suite.request("POST", "/api/auth/signup", gin.H{
		"name":     "A",
		"email":    "not-an-email",
		"password": "123",
	}, nil)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	var body errorBody
	suite.decode(w, &body)
	assert.ElementsMatch(suite.T(), []string{"name", "email", "password"}, body.fields())
}

func (suite *APITestSuite) TestSignup_InvalidBody() {
	w := suite.request("POST", "/api/auth/signup", "{not json", nil)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *APITestSuite) TestLogin_Success() {
	cookies := suite.asCasey()

	w := suite.request("GET", "/api/auth/me", nil, cookies)

	suite.Require().Equal(http.StatusOK, w.Code)
	var user dto.UserDTO
	suite.decode(w, &user)
	assert.Equal(suite.T(), "user-1", user.ID)
	assert.Equal(suite.T(), "Casey Jordan", user.Name)
}

func (suite *APITestSuite) TestLogin_InvalidCredential() {
	w := suite.request("POST", "/api/auth/login", gin.H{"email": "user@example.com", "password": "wrong"}, nil)

	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
	var body errorBody
	suite.decode(w, &body)
	assert.Equal(suite.T(), "Invalid email or password.", body.Message)
	assert.Empty(suite.T(), w.Result().Cookies())
}

func (suite *APITestSuite) TestLogin_MissingCredentials() {
	w := suite.request("POST", "/api/auth/login", gin.H{}, nil)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	var body errorBody
	suite.decode(w, &body)
	assert.ElementsMatch(suite.T(), []string{"email", "password"}, body.fields())
}

func (suite *APITestSuite) TestLogin_RequestedRoleOverwritesStoredRole() {
	w := suite.request("POST", "/api/auth/login", gin.H{
		"email":    "user@example.com",
		"password": demoPassword,
		"role":     "project-manager",
	}, nil)

	suite.Require().Equal(http.StatusOK, w.Code)
	stored, err := suite.store.Users.FindByID(suite.ctx, "user-1")
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.RoleProjectManager, stored.Role)
}

func (suite *APITestSuite) TestLogin_UnknownRole() {
	w := suite.request("POST", "/api/auth/login", gin.H{
		"email":    "user@example.com",
		"password": demoPassword,
		"role":     "admin",
	}, nil)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *APITestSuite) TestLogin_MockUserIDDisabled() {
	w := suite.request("POST", "/api/auth/login", gin.H{"userId": "pm-1"}, nil)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *APITestSuite) TestLogin_MockUserID() {
	router := suite.newRouter(suite.suggester, true)

	w := suite.requestOn(router, "POST", "/api/auth/login", gin.H{"userId": "pm-1"}, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	me := suite.requestOn(router, "GET", "/api/auth/me", nil, w.Result().Cookies())
	assert.Contains(suite.T(), me.Body.String(), "Alex Ray")

	missing := suite.requestOn(router, "POST", "/api/auth/login", gin.H{"userId": "nobody"}, nil)
	assert.Equal(suite.T(), http.StatusBadRequest, missing.Code)
}

func (suite *APITestSuite) TestLogout() {
	cookies := suite.asCasey()

	w := suite.request("POST", "/api/auth/logout", nil, cookies)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.Contains(suite.T(), w.Body.String(), "Logged out successfully")

	me := suite.request("GET", "/api/auth/me", nil, w.Result().Cookies())
	assert.Equal(suite.T(), http.StatusUnauthorized, me.Code)

	// Logging out never touches the store
	_, err := suite.store.Users.FindByID(suite.ctx, "user-1")
	assert.NoError(suite.T(), err)
}

func (suite *APITestSuite) TestMe_Unauthenticated() {
	w := suite.request("GET", "/api/auth/me", nil, nil)

	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

// TestGetCurrentUser_NoActor calls the handler without the auth middleware
func (suite *APITestSuite) TestGetCurrentUser_NoActor() {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/auth/me", nil)

	NewAuthHandler(nil, false).GetCurrentUser(c)

	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}
