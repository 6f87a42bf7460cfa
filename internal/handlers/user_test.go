package handlers

import (
	"net/http"

	"github.com/stretchr/testify/assert"
	"github.com/yukikurage/taskpilot/internal/dto"
)

func (suite *APITestSuite) listUsers(query string) []dto.UserDTO {
	w := suite.request("GET", "/api/users"+query, nil, suite.asPM())
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var response dto.UserListResponse
	suite.decode(w, &response)
	return response.Users
}

func (suite *APITestSuite) TestListUsers() {
	assert.Len(suite.T(), suite.listUsers(""), 4)
}

func (suite *APITestSuite) TestListUsers_ByRole() {
	assignable := suite.listUsers("?role=User")
	assert.Len(suite.T(), assignable, 3)
	for _, u := range assignable {
		assert.NotEqual(suite.T(), "pm-1", u.ID)
	}

	managers := suite.listUsers("?role=project-manager")
	suite.Require().Len(managers, 1)
	assert.Equal(suite.T(), "pm-1", managers[0].ID)
}

func (suite *APITestSuite) TestListUsers_InvalidRole() {
	w := suite.request("GET", "/api/users?role=admin", nil, suite.asPM())

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *APITestSuite) TestListUsers_Unauthorized() {
	w := suite.request("GET", "/api/users", nil, nil)

	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}
