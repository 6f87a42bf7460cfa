package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/yukikurage/taskpilot/internal/dto"
	apierrors "github.com/yukikurage/taskpilot/internal/errors"
	"github.com/yukikurage/taskpilot/internal/services"
)

func (suite *APITestSuite) TestSuggestDescription() {
	w := suite.request("POST", "/api/ai/suggest-description", gin.H{"title": "Design Dashboard UI"}, suite.asCasey())

	suite.Require().Equal(http.StatusOK, w.Code)
	var response dto.SuggestDescriptionResponse
	suite.decode(w, &response)
	assert.Equal(suite.T(), "Drafted description.", response.Description)
}

func (suite *APITestSuite) TestSuggestDescription_ShortTitle() {
	w := suite.request("POST", "/api/ai/suggest-description", gin.H{"title": "ab"}, suite.asCasey())

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Zero(suite.T(), suite.suggester.calls)
}

func (suite *APITestSuite) TestSuggestDescription_Unavailable() {
	suite.suggester.err = apierrors.NewUpstreamError(apierrors.ServiceTextSuggester, apierrors.UpstreamUnavailable, errors.New("down"))

	w := suite.request("POST", "/api/ai/suggest-description", gin.H{"title": "Design Dashboard UI"}, suite.asCasey())

	assert.Equal(suite.T(), http.StatusServiceUnavailable, w.Code)
	var body errorBody
	suite.decode(w, &body)
	assert.Equal(suite.T(), "AI assistance is currently unavailable.", body.Message)
}

func (suite *APITestSuite) TestSuggestDescription_NotConfigured() {
	router := suite.newRouter(nil, false)
	login := suite.requestOn(router, "POST", "/api/auth/login", gin.H{"email": "user@example.com", "password": demoPassword}, nil)
	suite.Require().Equal(http.StatusOK, login.Code)

	w := suite.requestOn(router, "POST", "/api/ai/suggest-description", gin.H{"title": "Design Dashboard UI"}, login.Result().Cookies())

	assert.Equal(suite.T(), http.StatusServiceUnavailable, w.Code)
}

func (suite *APITestSuite) TestWeeklySummary() {
	w := suite.request("POST", "/api/ai/weekly-summary", nil, suite.asPM())

	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var summary dto.WeeklySummaryResponse
	suite.decode(w, &summary)
	assert.Equal(suite.T(), "One task shipped.", summary.Summary)
	assert.Equal(suite.T(), services.ProgressNote, summary.Progress)
}

func (suite *APITestSuite) TestWeeklySummary_RequiresProjectManager() {
	w := suite.request("POST", "/api/ai/weekly-summary", nil, suite.asCasey())

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
	assert.Zero(suite.T(), suite.suggester.calls)
}

// TestWeeklySummary_FailureKeepsTasks tests that a suggester outage leaves
// the store as it was
func (suite *APITestSuite) TestWeeklySummary_FailureKeepsTasks() {
	suite.suggester.err = apierrors.NewUpstreamError(apierrors.ServiceTextSuggester, apierrors.UpstreamRateLimited, errors.New("slow down"))

	w := suite.request("POST", "/api/ai/weekly-summary", nil, suite.asPM())

	assert.Equal(suite.T(), http.StatusTooManyRequests, w.Code)
	assert.Equal(suite.T(), int64(5), suite.taskCount())
}
