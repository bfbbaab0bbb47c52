package sessiondelivery

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-petr/bank-ledger/internal/domain"
	"github.com/go-petr/bank-ledger/pkg/errorspkg"
	"github.com/go-petr/bank-ledger/pkg/randompkg"
	"github.com/go-petr/bank-ledger/pkg/tokenpkg"
	"github.com/go-petr/bank-ledger/pkg/web"
	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestRenewAccessToken(t *testing.T) {
	symmetricKey := randompkg.String(32)

	tokenMaker, err := tokenpkg.NewPasetoMaker(symmetricKey)
	if err != nil {
		t.Fatalf("tokenpkg.NewPasetoMaker(%v) returned error: %v", symmetricKey, err)
	}

	type requestBody struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	username := randompkg.Owner()
	duration := time.Minute

	token, payload, err := tokenMaker.CreateToken(username, duration)
	if err != nil {
		t.Fatalf("tokenMaker.CreateToken(%v, %v) returned error: %v", username, duration, err)
	}

	testCases := []struct {
		name           string
		requestBody    requestBody
		buildStubs     func(service *MockService)
		wantStatusCode int
		checkData      func(t *testing.T, res web.Response)
		wantError      string
	}{
		{
			name: "OK",
			requestBody: requestBody{
				RefreshToken: token,
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					RenewAccessToken(gomock.Any(), token).
					Times(1).
					Return(token, payload.ExpiredAt, nil)
			},
			wantStatusCode: http.StatusOK,
			checkData: func(t *testing.T, got web.Response) {
				t.Helper()

				want := web.Response{
					AccessToken:          token,
					AccessTokenExpiresAt: payload.ExpiredAt,
				}

				compareCreatedAt := cmpopts.EquateApproxTime(time.Second)
				if diff := cmp.Diff(want, got, compareCreatedAt); diff != "" {
					t.Errorf("res.Data mismatch (-want +got):\n%s", diff)
				}
			},
		},
		{
			name: "RequiredRefreshToken",
			requestBody: requestBody{
				RefreshToken: "",
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					RenewAccessToken(gomock.Any(), token).
					Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "RefreshToken field is required",
		},
		{
			name: "ExpiredToken",
			requestBody: requestBody{
				RefreshToken: token,
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					RenewAccessToken(gomock.Any(), token).
					Times(1).
					Return("", time.Time{}, tokenpkg.ErrExpiredToken)
			},
			wantStatusCode: http.StatusUnauthorized,
			wantError:      tokenpkg.ErrExpiredToken.Error(),
		},
		{
			name: "BlockedSession",
			requestBody: requestBody{
				RefreshToken: token,
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					RenewAccessToken(gomock.Any(), token).
					Times(1).
					Return("", time.Time{}, domain.ErrBlockedSession)
			},
			wantStatusCode: http.StatusUnauthorized,
			wantError:      domain.ErrBlockedSession.Error(),
		},
		{
			name: "SessionNotFound",
			requestBody: requestBody{
				RefreshToken: token,
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					RenewAccessToken(gomock.Any(), token).
					Times(1).
					Return("", time.Time{}, domain.ErrSessionNotFound)
			},
			wantStatusCode: http.StatusNotFound,
			wantError:      domain.ErrSessionNotFound.Error(),
		},
		{
			name: "InternalServiceError",
			requestBody: requestBody{
				RefreshToken: token,
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					RenewAccessToken(gomock.Any(), token).
					Times(1).
					Return("", time.Now(), errorspkg.ErrInternal)
			},
			wantStatusCode: http.StatusInternalServerError,
			wantError:      errorspkg.ErrInternal.Error(),
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// Set up mocks
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			sessionService := NewMockService(ctrl)
			sessionHandler := NewHandler(sessionService)

			gin.SetMode(gin.ReleaseMode)
			server := gin.New()
			url := "/tokens/renew_access"

			server.POST(url, sessionHandler.RenewAccessToken)

			tc.buildStubs(sessionService)

			// Send request
			body, err := json.Marshal(tc.requestBody)
			if err != nil {
				t.Fatalf("Encoding request body error: %v", err)
			}

			req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				t.Fatalf("Creating request error: %v", err)
			}

			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)

			// Test response
			if got := w.Code; got != tc.wantStatusCode {
				t.Errorf("Status code: got %v, want %v", got, tc.wantStatusCode)
			}

			res := web.Response{}

			if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
				t.Errorf("Decoding response body error: %v", err)
			}

			if tc.wantStatusCode != http.StatusOK {
				if res.Error != tc.wantError {
					t.Errorf(`res.Error=%q, want %q`, res.Error, tc.wantError)
				}
			} else {
				tc.checkData(t, res)
			}
		})
	}
}

func TestRevoke(t *testing.T) {
	refreshToken := randompkg.String(32)

	testCases := []struct {
		name           string
		body           gin.H
		buildStubs     func(service *MockService)
		wantStatusCode int
	}{
		{
			name: "OK",
			body: gin.H{"refresh_token": refreshToken},
			buildStubs: func(service *MockService) {
				service.EXPECT().Revoke(gomock.Any(), refreshToken).Times(1).Return(nil)
			},
			wantStatusCode: http.StatusNoContent,
		},
		{
			name: "MissingRefreshToken",
			body: gin.H{},
			buildStubs: func(service *MockService) {
				service.EXPECT().Revoke(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "InvalidToken",
			body: gin.H{"refresh_token": refreshToken},
			buildStubs: func(service *MockService) {
				service.EXPECT().Revoke(gomock.Any(), refreshToken).Times(1).Return(tokenpkg.ErrInvalidToken)
			},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name: "InternalError",
			body: gin.H{"refresh_token": refreshToken},
			buildStubs: func(service *MockService) {
				service.EXPECT().Revoke(gomock.Any(), refreshToken).Times(1).Return(errorspkg.ErrInternal)
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			sessionService := NewMockService(ctrl)
			tc.buildStubs(sessionService)

			gin.SetMode(gin.ReleaseMode)
			server := gin.New()
			url := "/tokens/revoke"
			server.POST(url, NewHandler(sessionService).Revoke)

			body, err := json.Marshal(tc.body)
			if err != nil {
				t.Fatalf("Encoding request body error: %v", err)
			}

			req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				t.Fatalf("Creating request error: %v", err)
			}

			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)

			if got := w.Code; got != tc.wantStatusCode {
				t.Errorf("Status code: got %v, want %v", got, tc.wantStatusCode)
			}
		})
	}
}
