package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleSustainabilityGet(c *gin.Context) {
	userID, ok := mustCaller(c)
	if !ok {
		return
	}

	stat, err := s.Sustainability.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stat)
}

func (s *Server) handleSustainabilityBadges(c *gin.Context) {
	userID, ok := mustCaller(c)
	if !ok {
		return
	}

	badges, err := s.Sustainability.Badges(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"badges": badges})
}

func (s *Server) handleRewardsList(c *gin.Context) {
	rewards, err := s.Rewards.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rewards": rewards})
}

func (s *Server) handleRewardRedeem(c *gin.Context) {
	userID, ok := mustCaller(c)
	if !ok {
		return
	}
	rewardID, ok := pathID(c, "id")
	if !ok {
		return
	}

	redemption, err := s.Rewards.Redeem(c.Request.Context(), userID, rewardID)
	recordOperation("reward_redeem", err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, redemption)
}

func (s *Server) handleRedemptionsList(c *gin.Context) {
	userID, ok := mustCaller(c)
	if !ok {
		return
	}

	redemptions, err := s.Rewards.ListRedemptions(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"redemptions": redemptions})
}

func (s *Server) handleRedemptionCancel(c *gin.Context) {
	userID, ok := mustCaller(c)
	if !ok {
		return
	}
	redemptionID, ok := pathID(c, "id")
	if !ok {
		return
	}

	redemption, err := s.Rewards.Cancel(c.Request.Context(), userID, redemptionID)
	recordOperation("redemption_cancel", err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, redemption)
}
