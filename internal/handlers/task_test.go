package handlers

import (
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/yukikurage/taskpilot/internal/dto"
	"github.com/yukikurage/taskpilot/internal/models"
)

func validTaskBody(assignee string) gin.H {
	return gin.H{
		"title":          "Write release notes",
		"description":    "Summarize every change shipped in this release.",
		"assignedUserId": assignee,
		"deadline":       "2026-12-01",
	}
}

func taskIDs(tasks []dto.TaskDTO) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}

// TestListTasks_ProjectManagerSeesAll tests listing as a project manager
func (suite *APITestSuite) TestListTasks_ProjectManagerSeesAll() {
	w := suite.request("GET", "/api/tasks", nil, suite.asPM())

	suite.Require().Equal(http.StatusOK, w.Code)
	var response dto.TaskListResponse
	suite.decode(w, &response)
	assert.Len(suite.T(), response.Tasks, 5)
	assert.Equal(suite.T(), int64(5), response.Pagination.Total)
	assert.Equal(suite.T(), "task-1", response.Tasks[0].ID)
}

// TestListTasks_UserSeesAssignedOnly tests listing as a regular user
func (suite *APITestSuite) TestListTasks_UserSeesAssignedOnly() {
	w := suite.request("GET", "/api/tasks", nil, suite.asCasey())

	suite.Require().Equal(http.StatusOK, w.Code)
	var response dto.TaskListResponse
	suite.decode(w, &response)
	assert.ElementsMatch(suite.T(), []string{"task-1", "task-3"}, taskIDs(response.Tasks))
	assert.Equal(suite.T(), int64(2), response.Pagination.Total)
}

func (suite *APITestSuite) TestListTasks_Paginated() {
	w := suite.request("GET", "/api/tasks?page=2&limit=2", nil, suite.asPM())

	suite.Require().Equal(http.StatusOK, w.Code)
	var response dto.TaskListResponse
	suite.decode(w, &response)
	assert.Equal(suite.T(), []string{"task-3", "task-4"}, taskIDs(response.Tasks))
	assert.Equal(suite.T(), 2, response.Pagination.Page)
	assert.Equal(suite.T(), 2, response.Pagination.Limit)
	assert.Equal(suite.T(), int64(5), response.Pagination.Total)
}

func (suite *APITestSuite) TestListTasks_StatusFilter() {
	cookies := suite.asPM()

	w := suite.request("GET", "/api/tasks?status=Done", nil, cookies)
	suite.Require().Equal(http.StatusOK, w.Code)
	var response dto.TaskListResponse
	suite.decode(w, &response)
	assert.Equal(suite.T(), []string{"task-4"}, taskIDs(response.Tasks))

	invalid := suite.request("GET", "/api/tasks?status=Archived", nil, cookies)
	assert.Equal(suite.T(), http.StatusBadRequest, invalid.Code)
}

// TestListTasks_Unauthorized tests listing without authentication
func (suite *APITestSuite) TestListTasks_Unauthorized() {
	w := suite.request("GET", "/api/tasks", nil, nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	// Handler called directly without the middleware
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest("GET", "/api/tasks", nil)
	NewTaskHandler(nil).ListTasks(c)
	assert.Equal(suite.T(), http.StatusUnauthorized, rec.Code)
}

func (suite *APITestSuite) TestGetTask() {
	w := suite.request("GET", "/api/tasks/task-2", nil, suite.login("taylor@example.com"))

	suite.Require().Equal(http.StatusOK, w.Code)
	var task dto.TaskDTO
	suite.decode(w, &task)
	assert.Equal(suite.T(), "Design Dashboard UI", task.Title)
	assert.Equal(suite.T(), "user-2", task.AssignedUserID)
}

func (suite *APITestSuite) TestGetTask_NotAssigned() {
	w := suite.request("GET", "/api/tasks/task-2", nil, suite.asCasey())

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

func (suite *APITestSuite) TestGetTask_NotFound() {
	w := suite.request("GET", "/api/tasks/missing", nil, suite.asPM())

	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

// TestCreateTask_Success tests that created tasks start Pending whatever
// status the client sends
func (suite *APITestSuite) TestCreateTask_Success() {
	body := validTaskBody("user-1")
	body["status"] = "Done"

	w := suite.request("POST", "/api/tasks", body, suite.asPM())

	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var task dto.TaskDTO
	suite.decode(w, &task)
	assert.NotEmpty(suite.T(), task.ID)
	assert.Equal(suite.T(), models.TaskStatusPending, task.Status)
	assert.Equal(suite.T(), "2026-12-01T00:00:00Z", task.Deadline)
	assert.Equal(suite.T(), int64(6), suite.taskCount())
}

func (suite *APITestSuite) TestCreateTask_Forbidden() {
	w := suite.request("POST", "/api/tasks", validTaskBody("user-1"), suite.asCasey())

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
	assert.Equal(suite.T(), int64(5), suite.taskCount())
}

// TestCreateTask_ValidationFirst tests that invalid input is reported even
// to actors who could not create tasks
func (suite *APITestSuite) TestCreateTask_ValidationFirst() {
	w := suite.request("POST", "/api/tasks", gin.H{
		"title":       "ab",
		"description": "short",
	}, suite.asCasey())

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	var body errorBody
	suite.decode(w, &body)
	assert.Equal(suite.T(), "VALIDATION_FAILED", body.Code)
	assert.ElementsMatch(suite.T(), []string{"title", "description", "assignedUserId", "deadline"}, body.fields())
	assert.Equal(suite.T(), int64(5), suite.taskCount())
}

func (suite *APITestSuite) TestCreateTask_ProjectManagerAssignee() {
	w := suite.request("POST", "/api/tasks", validTaskBody("pm-1"), suite.asPM())

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	var body errorBody
	suite.decode(w, &body)
	assert.Contains(suite.T(), body.fields(), "assignedUserId")
}

func (suite *APITestSuite) TestCreateTask_InvalidBody() {
	w := suite.request("POST", "/api/tasks", "{", suite.asPM())

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestUpdateTask_KeepsStatus tests that edits never change status
func (suite *APITestSuite) TestUpdateTask_KeepsStatus() {
	body := validTaskBody("user-2")
	body["status"] = "Pending"

	w := suite.request("PUT", "/api/tasks/task-4", body, suite.asPM())

	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	stored := suite.task("task-4")
	assert.Equal(suite.T(), "Write release notes", stored.Title)
	assert.Equal(suite.T(), "user-2", stored.AssignedUserID)
	assert.Equal(suite.T(), models.TaskStatusDone, stored.Status)
}

func (suite *APITestSuite) TestUpdateTask_Forbidden() {
	w := suite.request("PUT", "/api/tasks/task-1", validTaskBody("user-1"), suite.asCasey())

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
	assert.Equal(suite.T(), "Develop User Authentication", suite.task("task-1").Title)
}

func (suite *APITestSuite) TestUpdateTask_NotFound() {
	w := suite.request("PUT", "/api/tasks/missing", validTaskBody("user-1"), suite.asPM())

	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *APITestSuite) TestDeleteTask() {
	cookies := suite.asPM()

	w := suite.request("DELETE", "/api/tasks/task-2", nil, cookies)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.Equal(suite.T(), int64(4), suite.taskCount())

	again := suite.request("DELETE", "/api/tasks/task-2", nil, cookies)
	assert.Equal(suite.T(), http.StatusNotFound, again.Code)
}

func (suite *APITestSuite) TestDeleteTask_Forbidden() {
	w := suite.request("DELETE", "/api/tasks/task-1", nil, suite.asCasey())

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
	assert.Equal(suite.T(), int64(5), suite.taskCount())
}

func (suite *APITestSuite) TestUpdateTaskStatus_AssignedUser() {
	w := suite.request("PATCH", "/api/tasks/task-3/status", gin.H{"status": "Done"}, suite.asCasey())

	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var task dto.TaskDTO
	suite.decode(w, &task)
	assert.Equal(suite.T(), models.TaskStatusDone, task.Status)
	assert.Equal(suite.T(), "Setup CI/CD Pipeline", task.Title)
}

func (suite *APITestSuite) TestUpdateTaskStatus_OtherUser() {
	w := suite.request("PATCH", "/api/tasks/task-2/status", gin.H{"status": "Done"}, suite.asCasey())

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
	assert.Equal(suite.T(), models.TaskStatusPending, suite.task("task-2").Status)
}

func (suite *APITestSuite) TestUpdateTaskStatus_ProjectManager() {
	w := suite.request("PATCH", "/api/tasks/task-2/status", gin.H{"status": "Done"}, suite.asPM())

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
	assert.Equal(suite.T(), models.TaskStatusPending, suite.task("task-2").Status)
}

func (suite *APITestSuite) TestUpdateTaskStatus_UnknownStatus() {
	w := suite.request("PATCH", "/api/tasks/task-3/status", gin.H{"status": "Archived"}, suite.asCasey())

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), models.TaskStatusPending, suite.task("task-3").Status)
}

func (suite *APITestSuite) TestUpdateTaskStatus_NotFound() {
	w := suite.request("PATCH", "/api/tasks/missing/status", gin.H{"status": "Done"}, suite.asCasey())

	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

// TestTaskLifecycle tests a project manager assigning work that the
// assignee then moves forward
func (suite *APITestSuite) TestTaskLifecycle() {
	pm := suite.asPM()
	casey := suite.asCasey()

	created := suite.request("POST", "/api/tasks", validTaskBody("user-1"), pm)
	suite.Require().Equal(http.StatusCreated, created.Code)
	var task dto.TaskDTO
	suite.decode(created, &task)

	moved := suite.request("PATCH", "/api/tasks/"+task.ID+"/status", gin.H{"status": "In Progress"}, casey)
	suite.Require().Equal(http.StatusOK, moved.Code)

	list := suite.request("GET", "/api/tasks", nil, pm)
	var response dto.TaskListResponse
	suite.decode(list, &response)
	suite.Require().NotEmpty(response.Tasks)
	assert.Equal(suite.T(), task.ID, response.Tasks[0].ID)
	assert.Equal(suite.T(), models.TaskStatusInProgress, response.Tasks[0].Status)

	mine := suite.request("GET", "/api/tasks", nil, casey)
	var assigned dto.TaskListResponse
	suite.decode(mine, &assigned)
	assert.Contains(suite.T(), taskIDs(assigned.Tasks), task.ID)
}
