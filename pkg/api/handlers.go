package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"multiswap/pkg/types"
)

func (s *Server) handleSwap(chain types.Chain) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.SwapRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}

		receipt, err := s.svc.Swap(c.Request.Context(), chain, req)
		if err != nil {
			s.respondError(c, chain, err)
			return
		}
		c.JSON(http.StatusOK, receipt)
	}
}

func (s *Server) handleBalance(chain types.Chain) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("mintAddress")

		balance, err := s.svc.Balance(c.Request.Context(), chain, token)
		if err != nil {
			s.log.Error().Err(err).Str("chain", string(chain)).Str("token", token).Msg("balance lookup failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"balance": json.Number(balance.String())})
	}
}

// respondError maps request faults to 400 and everything else to 500
func (s *Server) respondError(c *gin.Context, chain types.Chain, err error) {
	status := http.StatusInternalServerError
	if types.IsClientError(err) {
		status = http.StatusBadRequest
	}

	event := s.log.Error()
	if status == http.StatusBadRequest {
		event = s.log.Info()
	}
	event.Err(err).Str("chain", string(chain)).Int("status", status).Msg("swap rejected")

	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	chains := gin.H{}
	ready := true
	for _, chain := range s.svc.Chains() {
		if err := s.svc.Ping(ctx, chain); err != nil {
			chains[string(chain)] = err.Error()
			ready = false
			continue
		}
		chains[string(chain)] = "ok"
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "chains": chains})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "chains": chains})
}

func (s *Server) handleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, s.buildInfo)
}
