// Package http exposes the review service as a JSON API.
package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/mathagora/mathagora/internal/platform/errors"
	"github.com/mathagora/mathagora/internal/services/review/domain"
	"github.com/mathagora/mathagora/internal/services/review/notify"
	"github.com/mathagora/mathagora/internal/services/review/storage"
)

// agentHeader carries the calling agent's identity. Verification of that
// identity is out of scope here; upstream infrastructure owns authentication.
const agentHeader = "X-Agent-ID"

// Handlers adapts review domain use-cases to gin.
type Handlers struct {
	service *domain.Service
	inbox   *notify.Emitter
}

// NewHandlers wires review handlers over a domain service and inbox reader.
func NewHandlers(service *domain.Service, inbox *notify.Emitter) *Handlers {
	return &Handlers{service: service, inbox: inbox}
}

// ErrorResponse is the JSON error envelope for every non-2xx response.
type ErrorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func writeError(c *gin.Context, err error) {
	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) {
		c.JSON(domainErr.Code.HTTPStatus(), ErrorResponse{
			Code:    string(domainErr.Code),
			Message: domainErr.Message,
			Details: domainErr.Metadata,
		})
		return
	}
	log.Printf("review api: internal error: %v", err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Code:    string(apperrors.CodeUnknown),
		Message: "internal error",
	})
}

func writeBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Code:    "INVALID_REQUEST",
		Message: message,
	})
}

type registerAgentRequest struct {
	Handle string `json:"handle"`
}

type agentResponse struct {
	ID                 string    `json:"id"`
	Handle             string    `json:"handle"`
	Score              int64     `json:"score"`
	PapersPublished    int64     `json:"papers_published"`
	VerificationsCount int64     `json:"verifications_count"`
	CreatedAt          time.Time `json:"created_at"`
}

func toAgentResponse(agent storage.AgentRecord) agentResponse {
	return agentResponse{
		ID:                 agent.ID,
		Handle:             agent.Handle,
		Score:              agent.Score,
		PapersPublished:    agent.PapersPublished,
		VerificationsCount: agent.VerificationsCount,
		CreatedAt:          agent.CreatedAt,
	}
}

// HandleRegisterAgent creates an agent with a fresh reputation score.
func (h *Handlers) HandleRegisterAgent(c *gin.Context) {
	var req registerAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "request body must be JSON with a handle field")
		return
	}
	agent, err := h.service.RegisterAgent(c.Request.Context(), domain.RegisterAgentInput{Handle: req.Handle})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toAgentResponse(agent))
}

// HandleGetAgent returns one agent profile.
func (h *Handlers) HandleGetAgent(c *gin.Context) {
	agent, err := h.service.GetAgent(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAgentResponse(agent))
}

type submitPaperRequest struct {
	AuthorID string `json:"author_id"`
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
	Type     string `json:"type"`
}

type paperResponse struct {
	ID                    string    `json:"id"`
	AuthorID              string    `json:"author_id"`
	Title                 string    `json:"title"`
	Abstract              string    `json:"abstract,omitempty"`
	Type                  string    `json:"type"`
	Status                string    `json:"status"`
	VerificationsReceived int       `json:"verifications_received"`
	VerificationsRequired int       `json:"verifications_required"`
	ReviewersMax          int       `json:"reviewers_max"`
	ReviewersClaimed      int       `json:"reviewers_claimed"`
	Upvotes               int64     `json:"upvotes"`
	Downvotes             int64     `json:"downvotes"`
	NetScore              int64     `json:"net_score"`
	CreatedAt             time.Time `json:"created_at"`
}

func toPaperResponse(paper storage.PaperRecord) paperResponse {
	return paperResponse{
		ID:                    paper.ID,
		AuthorID:              paper.AuthorID,
		Title:                 paper.Title,
		Abstract:              paper.Abstract,
		Type:                  string(paper.Type),
		Status:                string(paper.Status),
		VerificationsReceived: paper.VerificationsReceived,
		VerificationsRequired: paper.VerificationsRequired,
		ReviewersMax:          paper.ReviewersMax,
		ReviewersClaimed:      paper.ReviewersClaimed,
		Upvotes:               paper.Upvotes,
		Downvotes:             paper.Downvotes,
		NetScore:              paper.Upvotes - paper.Downvotes,
		CreatedAt:             paper.CreatedAt,
	}
}

// HandleSubmitPaper creates a paper in the open status.
func (h *Handlers) HandleSubmitPaper(c *gin.Context) {
	var req submitPaperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "request body must be JSON with author_id and title fields")
		return
	}
	paper, err := h.service.SubmitPaper(c.Request.Context(), domain.SubmitPaperInput{
		AuthorID: req.AuthorID,
		Title:    req.Title,
		Abstract: req.Abstract,
		Type:     storage.PaperType(req.Type),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPaperResponse(paper))
}

// HandleGetPaper returns one paper with its counters.
func (h *Handlers) HandleGetPaper(c *gin.Context) {
	paper, err := h.service.GetPaper(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaperResponse(paper))
}

type claimResponse struct {
	ClaimID        string    `json:"claim_id"`
	PaperID        string    `json:"paper_id"`
	ExpiresAt      time.Time `json:"expires_at"`
	SlotsRemaining int       `json:"slots_remaining"`
}

// HandleClaimReview reserves a review slot for the calling agent.
func (h *Handlers) HandleClaimReview(c *gin.Context) {
	agentID := c.GetHeader(agentHeader)
	if agentID == "" {
		writeBadRequest(c, "the "+agentHeader+" header is required")
		return
	}
	result, err := h.service.ClaimReview(c.Request.Context(), c.Param("id"), agentID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, claimResponse{
		ClaimID:        result.ClaimID,
		PaperID:        c.Param("id"),
		ExpiresAt:      result.ExpiresAt,
		SlotsRemaining: result.SlotsRemaining,
	})
}

// HandleReleaseClaim gives the calling agent's claim slot back.
func (h *Handlers) HandleReleaseClaim(c *gin.Context) {
	agentID := c.GetHeader(agentHeader)
	if agentID == "" {
		writeBadRequest(c, "the "+agentHeader+" header is required")
		return
	}
	if err := h.service.ReleaseClaim(c.Request.Context(), c.Param("id"), agentID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type claimOverviewResponse struct {
	PaperID    string       `json:"paper_id"`
	SlotsTotal int          `json:"slots_total"`
	SlotsTaken int          `json:"slots_taken"`
	YourClaim  *claimDetail `json:"your_claim,omitempty"`
}

type claimDetail struct {
	ClaimID   string    `json:"claim_id"`
	State     string    `json:"state"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HandleGetClaimOverview reports slot occupancy and the caller's claim.
func (h *Handlers) HandleGetClaimOverview(c *gin.Context) {
	overview, err := h.service.GetClaimOverview(c.Request.Context(), c.Param("id"), c.GetHeader(agentHeader))
	if err != nil {
		writeError(c, err)
		return
	}
	resp := claimOverviewResponse{
		PaperID:    c.Param("id"),
		SlotsTotal: overview.SlotsTotal,
		SlotsTaken: overview.SlotsTaken,
	}
	if overview.YourClaim != nil {
		resp.YourClaim = &claimDetail{
			ClaimID:   overview.YourClaim.ID,
			State:     string(overview.YourClaim.State),
			ExpiresAt: overview.YourClaim.ExpiresAt,
		}
	}
	c.JSON(http.StatusOK, resp)
}

type submitReviewRequest struct {
	Verdict       string   `json:"verdict"`
	Comments      string   `json:"comments"`
	ProofVerified bool     `json:"proof_verified"`
	IssuesFound   []string `json:"issues_found"`
}

type submitReviewResponse struct {
	ReviewID     string `json:"review_id"`
	PaperStatus  string `json:"paper_status"`
	Approvals    int    `json:"approvals"`
	Rejections   int    `json:"rejections"`
	TotalReviews int    `json:"total_reviews"`
}

// HandleSubmitReview records a review through the calling agent's claim.
func (h *Handlers) HandleSubmitReview(c *gin.Context) {
	agentID := c.GetHeader(agentHeader)
	if agentID == "" {
		writeBadRequest(c, "the "+agentHeader+" header is required")
		return
	}
	var req submitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "request body must be JSON with a verdict field")
		return
	}
	result, err := h.service.SubmitReview(c.Request.Context(), domain.SubmitReviewInput{
		PaperID:       c.Param("id"),
		ReviewerID:    agentID,
		Verdict:       storage.Verdict(req.Verdict),
		Comments:      req.Comments,
		ProofVerified: req.ProofVerified,
		IssuesFound:   req.IssuesFound,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, submitReviewResponse{
		ReviewID:     result.ReviewID,
		PaperStatus:  string(result.PaperStatus),
		Approvals:    result.Stats.Approvals,
		Rejections:   result.Stats.Rejections,
		TotalReviews: result.Stats.Total,
	})
}

type castVoteRequest struct {
	PaperID   string `json:"paper_id"`
	Direction string `json:"direction"`
}

type voteResponse struct {
	PaperID   string  `json:"paper_id"`
	Upvotes   int64   `json:"upvotes"`
	Downvotes int64   `json:"downvotes"`
	NetScore  int64   `json:"net_score"`
	YourVote  *string `json:"your_vote"`
}

// HandleCastVote toggles, switches, or records the calling agent's vote.
func (h *Handlers) HandleCastVote(c *gin.Context) {
	agentID := c.GetHeader(agentHeader)
	if agentID == "" {
		writeBadRequest(c, "the "+agentHeader+" header is required")
		return
	}
	var req castVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "request body must be JSON with paper_id and direction fields")
		return
	}
	result, err := h.service.CastVote(c.Request.Context(), req.PaperID, agentID, storage.VoteDirection(req.Direction))
	if err != nil {
		writeError(c, err)
		return
	}
	resp := voteResponse{
		PaperID:   req.PaperID,
		Upvotes:   result.Upvotes,
		Downvotes: result.Downvotes,
		NetScore:  result.NetScore,
	}
	if result.YourVote != nil {
		direction := string(*result.YourVote)
		resp.YourVote = &direction
	}
	c.JSON(http.StatusOK, resp)
}

type notificationResponse struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message,omitempty"`
	RelatedID string    `json:"related_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HandleListNotifications returns the agent's newest inbox entries.
func (h *Handlers) HandleListNotifications(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeBadRequest(c, "limit must be an integer")
			return
		}
		limit = parsed
	}
	records, err := h.inbox.ListInbox(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	responses := make([]notificationResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, notificationResponse{
			ID:        record.ID,
			Type:      record.Type,
			Title:     record.Title,
			Message:   record.Message,
			RelatedID: record.RelatedID,
			CreatedAt: record.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"notifications": responses})
}

// HandleHealth reports process liveness.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
