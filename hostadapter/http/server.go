// Package http is the REST + WebSocket host adapter for engine.Engine,
// grounded on leanlp-BTC-coinjoin's gin/gorilla-websocket API layer: one
// gin.HandlerFunc per spec.md §6 extrinsic, translating engine.Error kinds
// to HTTP status codes, plus a /events/ws event stream and a /metrics scrape
// endpoint.
package http

import (
	"errors"
	"net/http"
	"net/http/pprof"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/infimum-network/infimum/engine"
	"github.com/infimum-network/infimum/pkg/verifier"
	"github.com/infimum-network/infimum/poll"
)

// Server wires an engine.Engine to gin's HTTP router and a WebSocket event
// hub.
type Server struct {
	engine *engine.Engine
	logger *zap.Logger
	hub    *hub
	router *gin.Engine
}

// New builds a Server, registering routes and subscribing the WebSocket hub
// to e's event stream.
func New(e *engine.Engine, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := newHub(logger)
	h.observe(e)
	go h.run()

	s := &Server{engine: e, logger: logger, hub: h, router: gin.New()}
	s.router.Use(gin.Recovery(), requestID(), accessLog(logger))
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler, for use with http.Server or
// httptest.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) registerRoutes() {
	s.router.GET("/events/ws", s.hub.subscribe)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.GET("/debug/pprof/*any", gin.WrapF(pprof.Index))

	v1 := s.router.Group("/v1")
	v1.POST("/coordinators", s.registerAsCoordinator)
	v1.POST("/coordinators/:account/keys", s.rotateKeys)
	v1.GET("/coordinators/:account/polls", s.coordinatorPolls)
	v1.POST("/polls", s.createPoll)
	v1.POST("/polls/:id/merge", s.mergePollState)
	v1.POST("/polls/:id/commit", s.commitOutcome)
	v1.POST("/polls/:id/nullify", s.nullifyPoll)
	v1.POST("/polls/:id/registrations", s.registerAsParticipant)
	v1.POST("/polls/:id/interactions", s.interactWithPoll)
}

// rawVerifyKeyRequest is the wire shape of verifier.RawVerifyKey: hex
// strings, since JSON cannot carry arbitrary binary safely.
type rawVerifyKeyRequest struct {
	AlphaG1    string   `json:"alpha_g1" binding:"required"`
	BetaG2     string   `json:"beta_g2" binding:"required"`
	GammaG2    string   `json:"gamma_g2" binding:"required"`
	DeltaG2    string   `json:"delta_g2" binding:"required"`
	GammaABCG1 []string `json:"gamma_abc_g1" binding:"required"`
}

type publicKeyRequest struct {
	X string `json:"x" binding:"required"`
	Y string `json:"y" binding:"required"`
}

func (pk publicKeyRequest) decode() (poll.PublicKey, error) {
	var out poll.PublicKey
	if err := decodeFixedHex(pk.X, out.X[:]); err != nil {
		return out, err
	}
	if err := decodeFixedHex(pk.Y, out.Y[:]); err != nil {
		return out, err
	}
	return out, nil
}

func (r rawVerifyKeyRequest) decode() (verifier.RawVerifyKey, error) {
	var out verifier.RawVerifyKey
	if err := decodeFixedHex(r.AlphaG1, out.AlphaG1[:]); err != nil {
		return out, err
	}
	if err := decodeFixedHex(r.BetaG2, out.BetaG2[:]); err != nil {
		return out, err
	}
	if err := decodeFixedHex(r.GammaG2, out.GammaG2[:]); err != nil {
		return out, err
	}
	if err := decodeFixedHex(r.DeltaG2, out.DeltaG2[:]); err != nil {
		return out, err
	}
	out.GammaABCG1 = make([][64]byte, len(r.GammaABCG1))
	for i, g := range r.GammaABCG1 {
		if err := decodeFixedHex(g, out.GammaABCG1[i][:]); err != nil {
			return out, err
		}
	}
	return out, nil
}

type registerCoordinatorRequest struct {
	Account   string              `json:"account" binding:"required"`
	PublicKey publicKeyRequest    `json:"public_key" binding:"required"`
	ProcessVK rawVerifyKeyRequest `json:"process_verify_key" binding:"required"`
	TallyVK   rawVerifyKeyRequest `json:"tally_verify_key" binding:"required"`
}

func (s *Server) registerAsCoordinator(c *gin.Context) {
	var req registerCoordinatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pk, err := req.PublicKey.decode()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	processVK, err := req.ProcessVK.decode()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tallyVK, err := req.TallyVK.decode()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.engine.RegisterAsCoordinator(c.Request.Context(), poll.Account(req.Account), pk, processVK, tallyVK); err != nil {
		writeEngineError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (s *Server) rotateKeys(c *gin.Context) {
	var req registerCoordinatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pk, err := req.PublicKey.decode()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	processVK, err := req.ProcessVK.decode()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tallyVK, err := req.TallyVK.decode()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := currentBlockParam(c)
	account := poll.Account(c.Param("account"))
	if err := s.engine.RotateKeys(c.Request.Context(), account, pk, processVK, tallyVK, now); err != nil {
		writeEngineError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) coordinatorPolls(c *gin.Context) {
	account := poll.Account(c.Param("account"))
	ids, err := s.engine.PollsByCoordinator(c.Request.Context(), account)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"poll_ids": ids})
}

type createPollRequest struct {
	Account string `json:"account" binding:"required"`
	Config  struct {
		SignupPeriod        uint64   `json:"signup_period" binding:"required"`
		VotingPeriod        uint64   `json:"voting_period" binding:"required"`
		MaxRegistrations    uint32   `json:"max_registrations" binding:"required"`
		MaxInteractions     uint32   `json:"max_interactions" binding:"required"`
		RegistrationDepth   uint8    `json:"registration_depth" binding:"required"`
		InteractionDepth    uint8    `json:"interaction_depth" binding:"required"`
		ProcessSubtreeDepth uint8    `json:"process_subtree_depth" binding:"required"`
		TallySubtreeDepth   uint8    `json:"tally_subtree_depth" binding:"required"`
		VoteOptionTreeDepth uint8    `json:"vote_option_tree_depth"`
		VoteOptions         []uint64 `json:"vote_options" binding:"required"`
	} `json:"config" binding:"required"`
	Now uint64 `json:"now"`
}

func (s *Server) createPoll(c *gin.Context) {
	var req createPollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cfg := poll.PollConfiguration{
		SignupPeriod:        poll.BlockNumber(req.Config.SignupPeriod),
		VotingPeriod:        poll.BlockNumber(req.Config.VotingPeriod),
		MaxRegistrations:    req.Config.MaxRegistrations,
		MaxInteractions:     req.Config.MaxInteractions,
		RegistrationDepth:   req.Config.RegistrationDepth,
		InteractionDepth:    req.Config.InteractionDepth,
		ProcessSubtreeDepth: req.Config.ProcessSubtreeDepth,
		TallySubtreeDepth:   req.Config.TallySubtreeDepth,
		VoteOptionTreeDepth: req.Config.VoteOptionTreeDepth,
		VoteOptions:         req.Config.VoteOptions,
	}

	id, err := s.engine.CreatePoll(c.Request.Context(), poll.Account(req.Account), cfg, poll.BlockNumber(req.Now))
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"poll_id": id})
}

func (s *Server) mergePollState(c *gin.Context) {
	id, err := pollIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.engine.MergePollState(c.Request.Context(), id, currentBlockParam(c)); err != nil {
		writeEngineError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) nullifyPoll(c *gin.Context) {
	id, err := pollIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.engine.NullifyPoll(c.Request.Context(), id, currentBlockParam(c)); err != nil {
		writeEngineError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

type registerParticipantRequest struct {
	PublicKey publicKeyRequest `json:"public_key" binding:"required"`
	Now       uint64           `json:"now"`
}

func (s *Server) registerAsParticipant(c *gin.Context) {
	id, err := pollIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req registerParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pk, err := req.PublicKey.decode()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	count, err := s.engine.RegisterAsParticipant(c.Request.Context(), id, pk, poll.BlockNumber(req.Now))
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"count": count})
}

type interactWithPollRequest struct {
	SharedPublicKey publicKeyRequest `json:"shared_public_key" binding:"required"`
	Data            []string         `json:"data" binding:"required"`
	Now             uint64           `json:"now"`
}

func (s *Server) interactWithPoll(c *gin.Context) {
	id, err := pollIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req interactWithPollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pk, err := req.SharedPublicKey.decode()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var data poll.InteractionData
	if len(req.Data) != len(data) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "data must carry exactly 10 words"})
		return
	}
	for i, word := range req.Data {
		if err := decodeFixedHex(word, data[i][:]); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	count, err := s.engine.InteractWithPoll(c.Request.Context(), id, pk, data, poll.BlockNumber(req.Now))
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"count": count})
}

type commitOutcomeRequest struct {
	OutcomeIndex *uint32 `json:"outcome_index"`
	Batches      []struct {
		NewCommitment string          `json:"new_commitment" binding:"required"`
		Proof         rawProofRequest `json:"proof" binding:"required"`
	} `json:"batches" binding:"required"`
}

type rawProofRequest struct {
	PiA string `json:"pi_a" binding:"required"`
	PiB string `json:"pi_b" binding:"required"`
	PiC string `json:"pi_c" binding:"required"`
}

func (r rawProofRequest) decode() (verifier.RawProof, error) {
	var out verifier.RawProof
	if err := decodeFixedHex(r.PiA, out.PiA[:]); err != nil {
		return out, err
	}
	if err := decodeFixedHex(r.PiB, out.PiB[:]); err != nil {
		return out, err
	}
	if err := decodeFixedHex(r.PiC, out.PiC[:]); err != nil {
		return out, err
	}
	return out, nil
}

func (s *Server) commitOutcome(c *gin.Context) {
	id, err := pollIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req commitOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	batches := make([]engine.Batch, len(req.Batches))
	for i, b := range req.Batches {
		proof, err := b.Proof.decode()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var commitment [32]byte
		if err := decodeFixedHex(b.NewCommitment, commitment[:]); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		batches[i] = engine.Batch{NewCommitment: fieldFromHex(commitment), Proof: proof}
	}

	if err := s.engine.CommitOutcome(c.Request.Context(), id, req.OutcomeIndex, batches); err != nil {
		writeEngineError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// writeEngineError maps an engine.Error to an HTTP status: config and
// malformed key/proof errors are 400, an unknown poll or coordinator is 404,
// every other engine error kind is 409, and a non-engine error is 500.
func writeEngineError(c *gin.Context, err error) {
	requestID := requestIDFrom(c)

	var engErr *engine.Error
	if !errors.As(err, &engErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "request_id": requestID})
		return
	}

	status := http.StatusConflict
	switch engErr.Kind {
	case engine.KindPollConfigInvalid, engine.KindMalformedKeys, engine.KindMalformedProof:
		status = http.StatusBadRequest
	case engine.KindPollDoesNotExist, engine.KindCoordinatorNotRegistered:
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": engErr.Kind, "reason": engErr.Reason, "request_id": requestID})
}
