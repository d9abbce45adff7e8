package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"solveit/db"
	"solveit/models"
	"solveit/utils"

	"github.com/gin-gonic/gin"
)

// GetProblemsHandler lists all of the caller's problems.
// @Summary      List Your Problems
// @Tags         Problems
// @Produce      json
// @Success      200  {array}   models.Problem "All problems owned by the caller, in insertion order."
// @Failure      401  {object}  utils.APIError "Not authenticated."
// @Router       /api/problems [get]
func GetProblemsHandler(c *gin.Context, problems *db.ProblemStore) {
	userID, ok := utils.AuthedUserID(c)
	if !ok {
		utils.GinInternalServerError(c, "User ID not found in context. Middleware issue?")
		return
	}

	c.JSON(http.StatusOK, problems.GetUserProblems(userID))
}

// CreateProblemRequest is the expected body for POST /api/problems.
type CreateProblemRequest struct {
	Problem  string `json:"problem"`
	Solution string `json:"solution"`
	Category string `json:"category"`
}

// CreateProblemHandler records a new problem for the caller.
// @Summary      Record a Problem
// @Tags         Problems
// @Accept       json
// @Produce      json
// @Param        problem body CreateProblemRequest true "Problem and solution text; category is optional and defaults to 'General'."
// @Success      201  {object}  models.Problem "The stored record, including its ID and timestamps."
// @Failure      400  {object}  utils.APIError "Problem or solution missing."
// @Failure      401  {object}  utils.APIError "Not authenticated."
// @Router       /api/problems [post]
func CreateProblemHandler(c *gin.Context, problems *db.ProblemStore) {
	userID, ok := utils.AuthedUserID(c)
	if !ok {
		utils.GinInternalServerError(c, "User ID not found in context. Middleware issue?")
		return
	}

	var req CreateProblemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if strings.TrimSpace(req.Problem) == "" || strings.TrimSpace(req.Solution) == "" {
		utils.GinBadRequest(c, "Problem and solution are required")
		return
	}

	created, err := problems.SaveUserProblem(models.Problem{
		Problem:  req.Problem,
		Solution: req.Solution,
		Category: strings.TrimSpace(req.Category),
	}, userID)
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to save problem: %v", err))
		return
	}

	c.JSON(http.StatusCreated, created)
}

// GetProblemHandler returns a single problem if the caller owns it.
// Someone else's record is reported exactly like a nonexistent one.
// @Summary      Get a Problem
// @Tags         Problems
// @Produce      json
// @Param        id   path      string  true  "Problem ID."
// @Success      200  {object}  models.Problem
// @Failure      401  {object}  utils.APIError "Not authenticated."
// @Failure      404  {object}  utils.APIError "No such problem, or not yours."
// @Router       /api/problems/{id} [get]
func GetProblemHandler(c *gin.Context, problems *db.ProblemStore) {
	userID, ok := utils.AuthedUserID(c)
	if !ok {
		utils.GinInternalServerError(c, "User ID not found in context. Middleware issue?")
		return
	}

	problem, found := problems.GetUserProblem(c.Param("id"), userID)
	if !found {
		utils.GinNotFound(c, "Problem not found")
		return
	}

	c.JSON(http.StatusOK, problem)
}

// UpdateProblemRequest is the expected body for PUT /api/problems/{id}.
// Every field is optional; absent fields are left unchanged.
type UpdateProblemRequest struct {
	Problem  *string `json:"problem"`
	Solution *string `json:"solution"`
	Category *string `json:"category"`
}

// UpdateProblemHandler applies a partial update to one of the caller's
// problems and advances its updated_at timestamp.
// @Summary      Update a Problem
// @Tags         Problems
// @Accept       json
// @Produce      json
// @Param        id      path      string                true  "Problem ID."
// @Param        patch   body      UpdateProblemRequest  true  "Fields to change; omitted fields keep their stored values."
// @Success      200  {object}  models.Problem "The updated record."
// @Failure      400  {object}  utils.APIError "Malformed body."
// @Failure      401  {object}  utils.APIError "Not authenticated."
// @Failure      404  {object}  utils.APIError "No such problem, or not yours."
// @Router       /api/problems/{id} [put]
func UpdateProblemHandler(c *gin.Context, problems *db.ProblemStore) {
	userID, ok := utils.AuthedUserID(c)
	if !ok {
		utils.GinInternalServerError(c, "User ID not found in context. Middleware issue?")
		return
	}

	var req UpdateProblemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	updated, found, err := problems.UpdateUserProblem(c.Param("id"), userID, db.ProblemPatch{
		Problem:  req.Problem,
		Solution: req.Solution,
		Category: req.Category,
	})
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to update problem: %v", err))
		return
	}
	if !found {
		utils.GinNotFound(c, "Problem not found")
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeleteProblemHandler removes one of the caller's problems.
// @Summary      Delete a Problem
// @Tags         Problems
// @Produce      json
// @Param        id   path      string  true  "Problem ID."
// @Success      200  {object}  map[string]string "Deletion confirmation."
// @Failure      401  {object}  utils.APIError "Not authenticated."
// @Failure      404  {object}  utils.APIError "No such problem, or not yours."
// @Router       /api/problems/{id} [delete]
func DeleteProblemHandler(c *gin.Context, problems *db.ProblemStore) {
	userID, ok := utils.AuthedUserID(c)
	if !ok {
		utils.GinInternalServerError(c, "User ID not found in context. Middleware issue?")
		return
	}

	deleted, err := problems.DeleteUserProblem(c.Param("id"), userID)
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to delete problem: %v", err))
		return
	}
	if !deleted {
		utils.GinNotFound(c, "Problem not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Problem deleted successfully"})
}

// StatisticsHandler returns totals and a per-category breakdown for the
// caller's problems.
// @Summary      Get Statistics
// @Tags         Problems
// @Produce      json
// @Success      200  {object}  models.Statistics
// @Failure      401  {object}  utils.APIError "Not authenticated."
// @Router       /api/statistics [get]
func StatisticsHandler(c *gin.Context, problems *db.ProblemStore) {
	userID, ok := utils.AuthedUserID(c)
	if !ok {
		utils.GinInternalServerError(c, "User ID not found in context. Middleware issue?")
		return
	}

	c.JSON(http.StatusOK, problems.GetUserStatistics(userID))
}

// ExportHandler sends the caller's problems as a downloadable JSON file.
// A user with no records gets a valid empty collection.
// @Summary      Export Your Problems
// @Tags         Problems
// @Produce      json
// @Success      200  {array}  models.Problem "Pretty-printed JSON attachment."
// @Failure      401  {object}  utils.APIError "Not authenticated."
// @Router       /api/export [get]
func ExportHandler(c *gin.Context, problems *db.ProblemStore) {
	userID, ok := utils.AuthedUserID(c)
	if !ok {
		utils.GinInternalServerError(c, "User ID not found in context. Middleware issue?")
		return
	}

	data, err := json.MarshalIndent(problems.GetUserProblems(userID), "", "  ")
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to export problems: %v", err))
		return
	}

	c.Header("Content-Disposition", "attachment; filename=problems_export.json")
	c.Data(http.StatusOK, "application/json", data)
}
