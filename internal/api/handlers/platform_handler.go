package handlers

import (
	"fmt"
	"log"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/postpilot/configs"
	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/service"
	"github.com/maheshrc27/postpilot/pkg/utils"
)

type PlatformHandler struct {
	ps  service.PlatformService
	ig  service.InstagramConnectService
	tt  service.TiktokConnectService
	yt  service.YoutubeConnectService
	tw  service.TwitterConnectService
	li  service.LinkedinConnectService
	cfg *config.Config
}

func NewPlatformHandler(
	ps service.PlatformService,
	ig service.InstagramConnectService,
	tt service.TiktokConnectService,
	yt service.YoutubeConnectService,
	tw service.TwitterConnectService,
	li service.LinkedinConnectService,
	cfg *config.Config) *PlatformHandler {
	return &PlatformHandler{
		ps:  ps,
		ig:  ig,
		tt:  tt,
		yt:  yt,
		tw:  tw,
		li:  li,
		cfg: cfg,
	}
}

func (h *PlatformHandler) AddSocialAccount(c *fiber.Ctx) error {
	authURL := h.ps.GetAuthURL(c.Context(), c.Params("platform"), c.Query("state"))
	if authURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown platform",
		})
	}
	return c.Redirect(authURL)
}

func (h *PlatformHandler) CallbackHandler(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")
	platform := c.Params("platform")

	claims, err := utils.ValidateToken(h.cfg.SecretKey, state)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to validate user",
		})
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to validate user",
		})
	}

	switch platform {
	case models.PlatformInstagram:
		err = h.ig.Callback(c.Context(), code, userID)
	case models.PlatformTiktok:
		err = h.tt.Callback(c.Context(), code, userID)
	case models.PlatformYoutube:
		err = h.yt.Callback(c.Context(), code, userID)
	case models.PlatformTwitter:
		_, err = h.tw.Callback(c.Context(), code, c.Query("code_verifier", "challenge"), userID)
	case models.PlatformLinkedin:
		err = h.li.Callback(c.Context(), code, userID)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown platform",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}

	redirectURL := fmt.Sprintf("%s/dashboard/accounts", h.cfg.FrontendURL)
	return c.Redirect(redirectURL, fiber.StatusTemporaryRedirect)
}

// TwitterOAuth1Start begins the separate OAuth 1.0a leg that Twitter
// media uploads require.
func (h *PlatformHandler) TwitterOAuth1Start(c *fiber.Ctx) error {
	authorizationURL, _, err := h.tw.OAuth1AuthorizationURL(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to start authorization",
		})
	}
	return c.Redirect(authorizationURL)
}

func (h *PlatformHandler) TwitterOAuth1Callback(c *fiber.Ctx) error {
	accountID := int64(c.QueryInt("account_id", 0))
	requestToken := c.Query("oauth_token")
	verifier := c.Query("oauth_verifier")

	if accountID == 0 || requestToken == "" || verifier == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing oauth parameters",
		})
	}

	if err := h.tw.OAuth1Callback(c.Context(), accountID, requestToken, verifier); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}

	redirectURL := fmt.Sprintf("%s/dashboard/accounts", h.cfg.FrontendURL)
	return c.Redirect(redirectURL, fiber.StatusTemporaryRedirect)
}

func (h *PlatformHandler) ListSocialAccounts(c *fiber.Ctx) error {
	userID := GetUserID(c)

	accountList, err := h.ps.List(c.Context(), userID)
	if err != nil {
		log.Println(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch social accounts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(accountList)
}

func (h *PlatformHandler) DeleteSocialAccount(c *fiber.Ctx) error {
	userID := GetUserID(c)
	accountId := c.QueryInt("id", 0)

	err := h.ps.Delete(c.Context(), userID, int64(accountId))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to delete social account",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
