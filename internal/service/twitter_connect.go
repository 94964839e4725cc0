package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/dghubble/oauth1"
	twitterOAuth1 "github.com/dghubble/oauth1/twitter"
	config "github.com/maheshrc27/postpilot/configs"
	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/repository"
	"github.com/maheshrc27/postpilot/pkg/utils"
)

const twitterTokenURL = "https://api.twitter.com/2/oauth2/token"

// Twitter accounts carry two credential sets: the OAuth2 user token for
// the v2 tweet API and an OAuth 1.0a pair for the v1.1 media upload
// endpoint. Connecting runs both flows; the account is usable for
// text-only tweets after the first.
type TwitterConnectService interface {
	Callback(ctx context.Context, code, codeVerifier string, userID int64) (int64, error)
	OAuth1AuthorizationURL(ctx context.Context) (string, *oauth1.Config, error)
	OAuth1Callback(ctx context.Context, accountID int64, requestToken, verifier string) error
	Refresh(ctx context.Context, account *models.SocialAccount) error
}

type twitterConnectService struct {
	cfg *config.Config
	sa  repository.SocialAccountRepository
}

func NewTwitterConnectService(cfg *config.Config, sa repository.SocialAccountRepository) TwitterConnectService {
	return &twitterConnectService{cfg: cfg, sa: sa}
}

type twitterTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
}

func (s *twitterConnectService) Callback(ctx context.Context, code, codeVerifier string, userID int64) (int64, error) {
	var err error

	if code == "" {
		err = errors.New("code or state is empty")
		slog.Info(err.Error())
		return 0, err
	}

	tokenResponse, err := s.exchangeCodeForToken(ctx, code, codeVerifier)
	if err != nil {
		return 0, err
	}

	userInfo, err := s.getUserInfo(ctx, tokenResponse.AccessToken)
	if err != nil {
		return 0, err
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(tokenResponse.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return 0, err
	}

	encryptedRefreshToken := ""
	if tokenResponse.RefreshToken != "" {
		encryptedRefreshToken, err = utils.Encrypt([]byte(tokenResponse.RefreshToken), []byte(s.cfg.SecretKey))
		if err != nil {
			return 0, err
		}
	}

	expiresAt := GetExpiresAt(tokenResponse.ExpiresIn)

	accountInfo := &models.SocialAccount{
		UserID:          userID,
		Platform:        models.PlatformTwitter,
		AccountID:       userInfo.ID,
		AccountName:     userInfo.Name,
		AccountUsername: userInfo.Username,
		ProfilePicture:  userInfo.ProfileImageURL,
		AccessToken:     encryptedAccessToken,
		RefreshToken:    encryptedRefreshToken,
		TokenExpiresAt:  &expiresAt,
	}

	accountID, err := s.sa.Create(ctx, nil, accountInfo)
	if err != nil {
		return 0, err
	}

	return accountID, nil
}

func (s *twitterConnectService) exchangeCodeForToken(ctx context.Context, code, codeVerifier string) (*twitterTokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", s.cfg.TwitterRedirectURI)
	data.Set("code_verifier", codeVerifier)

	req, err := http.NewRequestWithContext(ctx, "POST", twitterTokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Basic "+s.basicAuth())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Info("Twitter token endpoint returned non-200 status")
		return nil, errors.New("Twitter token endpoint returned non-200 status")
	}

	var tokenResponse twitterTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	return &tokenResponse, nil
}

func (s *twitterConnectService) basicAuth() string {
	return base64.StdEncoding.EncodeToString([]byte(s.cfg.TwitterClientID + ":" + s.cfg.TwitterClientSecret))
}

type twitterUserInfo struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Username        string `json:"username"`
	ProfileImageURL string `json:"profile_image_url"`
}

func (s *twitterConnectService) getUserInfo(ctx context.Context, accessToken string) (*twitterUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, "GET",
		"https://api.twitter.com/2/users/me?user.fields=profile_image_url", nil)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response status: %d", resp.StatusCode)
	}

	var result struct {
		Data twitterUserInfo `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return &result.Data, nil
}

func (s *twitterConnectService) oauth1Config() *oauth1.Config {
	return &oauth1.Config{
		ConsumerKey:    s.cfg.TwitterConsumerKey,
		ConsumerSecret: s.cfg.TwitterConsumerSecret,
		CallbackURL:    s.cfg.TwitterRedirectURI,
		Endpoint:       twitterOAuth1.AuthorizeEndpoint,
	}
}

// OAuth1AuthorizationURL starts the three-legged OAuth 1.0a flow. The
// returned config must be reused for the callback exchange.
func (s *twitterConnectService) OAuth1AuthorizationURL(ctx context.Context) (string, *oauth1.Config, error) {
	conf := s.oauth1Config()

	requestToken, _, err := conf.RequestToken()
	if err != nil {
		slog.Info(err.Error())
		return "", nil, err
	}

	authorizationURL, err := conf.AuthorizationURL(requestToken)
	if err != nil {
		slog.Info(err.Error())
		return "", nil, err
	}

	return authorizationURL.String(), conf, nil
}

// OAuth1Callback finishes the flow and attaches the media-upload
// credentials to an already-connected account.
func (s *twitterConnectService) OAuth1Callback(ctx context.Context, accountID int64, requestToken, verifier string) error {
	conf := s.oauth1Config()

	accessToken, accessSecret, err := conf.AccessToken(requestToken, "", verifier)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	encryptedToken, err := utils.Encrypt([]byte(accessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	encryptedSecret, err := utils.Encrypt([]byte(accessSecret), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	return s.sa.SetOAuth1Token(ctx, accountID, encryptedToken, encryptedSecret)
}

// Refresh rotates the OAuth2 pair. Twitter refresh tokens are single
// use, so the new refresh token always replaces the stored one.
func (s *twitterConnectService) Refresh(ctx context.Context, account *models.SocialAccount) error {
	decryptedRefreshToken, err := utils.Decrypt(account.RefreshToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", decryptedRefreshToken)

	req, err := http.NewRequestWithContext(ctx, "POST", twitterTokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Basic "+s.basicAuth())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.New("Twitter token endpoint returned non-200 status")
	}

	var tokenResponse twitterTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		slog.Info(err.Error())
		return err
	}
	if tokenResponse.AccessToken == "" {
		return errors.New("no access token returned from Twitter")
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(tokenResponse.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	encryptedRefreshToken := ""
	if tokenResponse.RefreshToken != "" {
		encryptedRefreshToken, err = utils.Encrypt([]byte(tokenResponse.RefreshToken), []byte(s.cfg.SecretKey))
		if err != nil {
			return err
		}
	}

	expiresAt := GetExpiresAt(tokenResponse.ExpiresIn)

	return s.sa.SetToken(ctx, account.ID, &models.SocialAccount{
		AccessToken:    encryptedAccessToken,
		RefreshToken:   encryptedRefreshToken,
		TokenExpiresAt: &expiresAt,
	})
}
