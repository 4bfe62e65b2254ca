package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"callsync-platform/internal/audit"
	"callsync-platform/internal/auth"
	"callsync-platform/internal/callevents"
	"callsync-platform/internal/callhistory"
	"callsync-platform/internal/reconcile"
	"callsync-platform/internal/reporting"
	"callsync-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// HistoryLister is the read side of the call-history store needed by the
// list endpoint.
type HistoryLister interface {
	ListCallHistory(ctx context.Context, limit int) ([]callhistory.CallRecord, error)
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth       *auth.Manager
	Normalizer *callevents.Normalizer
	Reconciler *reconcile.Reconciler
	History    HistoryLister
	Reports    *reporting.Service
	Audit      *audit.Service
}

// --- Auth ---

type loginRequest struct {
	UserID     string `json:"user_id"`
	DeviceID   string `json:"device_id"`
	DeviceRole string `json:"device_role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate device
// linking (QR provisioning handshake) before minting tokens.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.DeviceID == "" || req.DeviceRole == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, device_id, device_role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.DeviceID, req.DeviceRole)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Call events (local engine observations) ---

const (
	kindCallStateChange = "call_state_change"
	kindRingUpdate      = "ring_update"
	kindGroupJoinState  = "group_join_state"
)

type callStateChangePayload struct {
	CallID    string `json:"call_id"`
	PeerID    string `json:"peer_id"`
	RingerID  string `json:"ringer_id,omitempty"`
	Mode      string `json:"mode"`
	Type      string `json:"type"`
	Direction string `json:"direction"`
	State     string `json:"state"`
	EndReason string `json:"end_reason,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type ringUpdatePayload struct {
	CallID    string `json:"call_id"`
	GroupID   string `json:"group_id"`
	RingerID  string `json:"ringer_id"`
	Reason    string `json:"reason"`
	Timestamp int64  `json:"timestamp"`
}

type groupJoinStatePayload struct {
	CallID    string `json:"call_id"`
	GroupID   string `json:"group_id"`
	RingerID  string `json:"ringer_id"`
	JoinState string `json:"join_state"`
	Ringing   bool   `json:"ringing"`
	Timestamp int64  `json:"timestamp"`
}

type callEventRequest struct {
	Kind string `json:"kind"`

	CallStateChange *callStateChangePayload `json:"call_state_change,omitempty"`
	RingUpdate      *ringUpdatePayload      `json:"ring_update,omitempty"`
	GroupJoinState  *groupJoinStatePayload  `json:"group_join_state,omitempty"`
}

// PostCallEvent ingests one local calling-engine observation, normalizes it
// and reconciles it into call history.
func (h Handlers) PostCallEvent(c *gin.Context) {
	if h.Reconciler == nil || h.Normalizer == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reconciler not configured"})
		return
	}
	var req callEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	ctx := c.Request.Context()
	var (
		details callhistory.CallEventDetails
		err     error
	)
	switch req.Kind {
	case kindCallStateChange:
		if req.CallStateChange == nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "call_state_change payload required"})
			return
		}
		p := req.CallStateChange
		details, err = callevents.FromCallStateChange(callevents.CallStateChange{
			CallID:    p.CallID,
			PeerID:    p.PeerID,
			RingerID:  p.RingerID,
			Mode:      callhistory.CallMode(p.Mode),
			Type:      callhistory.CallType(p.Type),
			Direction: callhistory.CallDirection(p.Direction),
			State:     callevents.EngineCallState(p.State),
			EndReason: callevents.EndReason(p.EndReason),
			Timestamp: p.Timestamp,
		})
	case kindRingUpdate:
		if req.RingUpdate == nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "ring_update payload required"})
			return
		}
		p := req.RingUpdate
		details, err = h.Normalizer.FromRingUpdate(ctx, callevents.RingUpdate{
			CallID:    p.CallID,
			GroupID:   p.GroupID,
			RingerID:  p.RingerID,
			Reason:    callevents.RingUpdateReason(p.Reason),
			Timestamp: p.Timestamp,
		})
	case kindGroupJoinState:
		if req.GroupJoinState == nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "group_join_state payload required"})
			return
		}
		p := req.GroupJoinState
		details, err = h.Normalizer.FromGroupJoinState(ctx, callevents.GroupJoinStateChange{
			CallID:    p.CallID,
			GroupID:   p.GroupID,
			RingerID:  p.RingerID,
			JoinState: callevents.GroupJoinState(p.JoinState),
			Ringing:   p.Ringing,
			Timestamp: p.Timestamp,
		})
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown event kind"})
		return
	}
	if err != nil {
		status := http.StatusBadRequest
		if !errors.Is(err, callevents.ErrUnknownWireValue) && !errors.Is(err, callevents.ErrUnresolvedRinger) {
			status = http.StatusInternalServerError
		}
		c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
		return
	}

	h.reconcileAndRespond(c, details)
}

// PostSyncCallEvent ingests one call event relayed from a linked device.
func (h Handlers) PostSyncCallEvent(c *gin.Context) {
	if h.Reconciler == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reconciler not configured"})
		return
	}
	var w callevents.SyncCallEvent
	if err := c.ShouldBindJSON(&w); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	details, err := callevents.FromSync(w)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.reconcileAndRespond(c, details)
}

func (h Handlers) reconcileAndRespond(c *gin.Context, details callhistory.CallEventDetails) {
	if err := h.Reconciler.Reconcile(c.Request.Context(), details); err != nil {
		if errors.Is(err, callhistory.ErrContract) || errors.Is(err, callhistory.ErrUnhandledTransition) {
			// The event contradicts the stored record; it was dropped.
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		logger.FromGin(c).Error("reconcile failed", "err", err, "call_id", details.CallID)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reconcile failed"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "reconciled"})
}

// --- Bulk operations ---

type anchorRequest struct {
	// Timestamp is the epoch-ms cutoff; everything at or before is affected.
	Timestamp int64 `json:"timestamp"`

	// CallID/PeerID optionally pin the anchor to a concrete call so linked
	// devices can apply the same cutoff even with skewed clocks.
	CallID string `json:"call_id,omitempty"`
	PeerID string `json:"peer_id,omitempty"`
}

func (r anchorRequest) record() callhistory.CallRecord {
	return callhistory.CallRecord{CallID: r.CallID, PeerID: r.PeerID, Timestamp: r.Timestamp}
}

// ClearHistory deletes all call history at or before the anchor.
func (h Handlers) ClearHistory(c *gin.Context) {
	if h.Reconciler == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reconciler not configured"})
		return
	}
	var req anchorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Timestamp <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "timestamp required"})
		return
	}
	if err := h.Reconciler.ClearAll(c.Request.Context(), req.record()); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "clear failed"})
		return
	}
	h.auditClear(c, req.Timestamp)
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

// MarkAllRead marks every unseen call at or before the anchor as read.
func (h Handlers) MarkAllRead(c *gin.Context) {
	if h.Reconciler == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reconciler not configured"})
		return
	}
	var req anchorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Timestamp <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "timestamp required"})
		return
	}
	if err := h.Reconciler.MarkAllRead(c.Request.Context(), req.record()); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "mark read failed"})
		return
	}
	h.auditMarkRead(c, "", req.Timestamp)
	c.JSON(http.StatusOK, gin.H{"status": "marked"})
}

// MarkConversationRead is MarkAllRead scoped to one conversation.
func (h Handlers) MarkConversationRead(c *gin.Context) {
	if h.Reconciler == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reconciler not configured"})
		return
	}
	conversationID := c.Param("conversation_id")
	if conversationID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "conversation_id required"})
		return
	}
	var req anchorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Timestamp <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "timestamp required"})
		return
	}
	if err := h.Reconciler.MarkAllReadInConversation(c.Request.Context(), conversationID, req.record()); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "mark read failed"})
		return
	}
	h.auditMarkRead(c, conversationID, req.Timestamp)
	c.JSON(http.StatusOK, gin.H{"status": "marked"})
}

// --- Reads ---

// ListHistory returns call-history records for display, newest first.
func (h Handlers) ListHistory(c *gin.Context) {
	if h.History == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "history store not configured"})
		return
	}
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	records, err := h.History.ListCallHistory(c.Request.Context(), limit)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "history lookup failed"})
		return
	}
	if records == nil {
		records = []callhistory.CallRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// HistorySummary returns aggregated metrics over a time range.
func (h Handlers) HistorySummary(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	from, err1 := strconv.ParseInt(c.DefaultQuery("from", "0"), 10, 64)
	to, err2 := strconv.ParseInt(c.DefaultQuery("to", "0"), 10, 64)
	if err1 != nil || err2 != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from/to must be epoch millis"})
		return
	}
	out, err := h.Reports.HistorySummary(c.Request.Context(), reporting.HistorySummaryRequest{
		Range: reporting.TimeRange{From: from, To: to},
		Mode:  c.Query("mode"),
	})
	if err != nil {
		if errors.Is(err, reporting.ErrInvalidRequest) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "summary failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

// --- Audit helpers (best-effort; never fail the request) ---

func (h Handlers) auditClear(c *gin.Context, anchor int64) {
	if h.Audit == nil {
		return
	}
	ctx := c.Request.Context()
	uid, _ := auth.UserID(ctx)
	did, _ := auth.DeviceID(ctx)
	role, _ := auth.DeviceRole(ctx)
	if err := h.Audit.LogHistoryCleared(ctx, uid, did, role, c.ClientIP(), anchor, ""); err != nil {
		logger.FromGin(c).Warn("audit append failed", "err", err)
	}
}

func (h Handlers) auditMarkRead(c *gin.Context, conversationID string, anchor int64) {
	if h.Audit == nil {
		return
	}
	ctx := c.Request.Context()
	uid, _ := auth.UserID(ctx)
	did, _ := auth.DeviceID(ctx)
	role, _ := auth.DeviceRole(ctx)
	if err := h.Audit.LogMarkedRead(ctx, uid, did, role, c.ClientIP(), conversationID, anchor); err != nil {
		logger.FromGin(c).Warn("audit append failed", "err", err)
	}
}
