package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Status  string `json:"status" enum:"error"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty" description:"Underlying error, outside production mode only."`
}

// SuccessResponse documents the success envelope around T.
type SuccessResponse[T any] struct {
	Status  string `json:"status" enum:"success"`
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type gameIDPath struct {
	ID string `path:"id"`
}

type listGamesQuery struct {
	Type    string `query:"type"`
	Style   string `query:"style"`
	Creator string `query:"creator" description:"Creator id or username."`
	Limit   int    `query:"limit" default:"20"`
	Offset  int    `query:"offset" default:"0"`
	Sort    string `query:"sort" enum:"recent,popular,trending" default:"recent"`
}

type trendingQuery struct {
	Limit int `query:"limit" default:"5"`
}

type userGamesPath struct {
	UserID string `path:"userID"`
}

type updateGameRequest struct {
	gameIDPath
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

type shareGameRequest struct {
	gameIDPath
	ShareRequest
}

type response struct {
	status int
	body   any
}

type operation struct {
	method, path string
	summary      string
	description  string
	request      any
	responses    []response
	auth         bool
}

func success(body any) response    { return response{http.StatusOK, body} }
func failure(status int) response { return response{status, ErrorResponse{}} }

var (
	notFound     = failure(http.StatusNotFound)
	forbidden    = failure(http.StatusForbidden)
	badRequest   = failure(http.StatusBadRequest)
	unauthorized = failure(http.StatusUnauthorized)
	badGateway   = failure(http.StatusBadGateway)
)

var operations = []operation{
	{
		method: http.MethodGet, path: "/api/games",
		summary:     "List games",
		description: "Filtered, sorted, paginated game listing. Sorts are stable on insertion order.",
		request:     listGamesQuery{},
		responses:   []response{success(SuccessResponse[GameListResponse]{}), badRequest},
	},
	{
		method: http.MethodGet, path: "/api/games/{id}",
		summary:   "Get game",
		request:   gameIDPath{},
		responses: []response{success(SuccessResponse[GameResponse]{}), notFound},
	},
	{
		method: http.MethodPost, path: "/api/games/generate",
		summary:     "Generate game",
		description: "Generates an unpublished game from a natural language description.",
		request:     genRequestDoc{},
		responses: []response{
			{http.StatusCreated, SuccessResponse[GameResponse]{}},
			badRequest, unauthorized,
		},
		auth: true,
	},
	{
		method: http.MethodPost, path: "/api/games",
		summary:     "Publish game",
		description: "Publishes a game. The first publish pays the creator a one-time creation reward.",
		request:     PublishRequest{},
		responses:   []response{success(SuccessResponse[PublishResponse]{}), badRequest, unauthorized, forbidden, notFound, badGateway},
		auth:        true,
	},
	{
		method: http.MethodPut, path: "/api/games/{id}",
		summary:   "Update game",
		request:   updateGameRequest{},
		responses: []response{success(SuccessResponse[GameResponse]{}), unauthorized, forbidden, notFound},
		auth:      true,
	},
	{
		method: http.MethodDelete, path: "/api/games/{id}",
		summary:   "Delete game",
		request:   gameIDPath{},
		responses: []response{success(SuccessResponse[GameResponse]{}), unauthorized, forbidden, notFound},
		auth:      true,
	},
	{
		method: http.MethodPost, path: "/api/games/{id}/play",
		summary:     "Play game",
		description: "Counts a play, rewarding the creator and the player.",
		request:     gameIDPath{},
		responses:   []response{success(SuccessResponse[RewardResponse]{}), unauthorized, notFound, badGateway},
		auth:        true,
	},
	{
		method: http.MethodPost, path: "/api/games/{id}/like",
		summary:     "Like game",
		description: "Counts a like, rewarding the creator.",
		request:     gameIDPath{},
		responses:   []response{success(SuccessResponse[RewardResponse]{}), unauthorized, notFound, badGateway},
		auth:        true,
	},
	{
		method: http.MethodPost, path: "/api/games/{id}/share",
		summary:     "Share game",
		description: "Counts a share, rewarding the sharer.",
		request:     shareGameRequest{},
		responses:   []response{success(SuccessResponse[RewardResponse]{}), unauthorized, notFound, badGateway},
		auth:        true,
	},
	{
		method: http.MethodGet, path: "/api/games/user/{userID}",
		summary:   "List user games",
		request:   userGamesPath{},
		responses: []response{success(SuccessResponse[GameCollectionResponse]{})},
	},
	{
		method: http.MethodGet, path: "/api/games/trending",
		summary:     "Trending games",
		description: "Games ordered by plays + 2*likes + 3*shares.",
		request:     trendingQuery{},
		responses:   []response{success(SuccessResponse[GameCollectionResponse]{}), badRequest},
	},
	{
		method: http.MethodGet, path: "/api/games/styles",
		summary:   "Game styles",
		responses: []response{success(SuccessResponse[StylesResponse]{})},
	},
	{
		method: http.MethodGet, path: "/api/games/types",
		summary:   "Game types",
		responses: []response{success(SuccessResponse[TypesResponse]{})},
	},
	{
		method: http.MethodPost, path: "/api/auth/login",
		summary:   "Login",
		request:   LoginRequest{},
		responses: []response{success(SuccessResponse[LoginResponse]{}), badRequest, unauthorized},
	},
	{
		method: http.MethodGet, path: "/api/auth/me",
		summary:   "Current user",
		responses: []response{success(SuccessResponse[UserResponse]{}), unauthorized},
		auth:      true,
	},
	{
		method: http.MethodGet, path: "/api/tokens/balance",
		summary:   "Token balance",
		responses: []response{success(SuccessResponse[BalanceResponse]{}), unauthorized, badGateway},
		auth:      true,
	},
	{
		method: http.MethodGet, path: "/api/tokens/history",
		summary:   "Token history",
		responses: []response{success(SuccessResponse[HistoryResponse]{}), unauthorized, badGateway},
		auth:      true,
	},
	{
		method: http.MethodPost, path: "/api/tokens/purchase",
		summary:   "Purchase item",
		request:   PurchaseRequest{},
		responses: []response{success(SuccessResponse[TransactionResponse]{}), badRequest, unauthorized, badGateway},
		auth:      true,
	},
}

// genRequestDoc mirrors game.GenerateRequest with schema annotations.
type genRequestDoc struct {
	Description string `json:"description" required:"true"`
	GameType    string `json:"gameType" example:"Racing"`
	GameStyle   string `json:"gameStyle" example:"Cyberpunk"`
	Complexity  string `json:"complexity" enum:"Simple,Advanced" default:"Simple"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "EpicVibe API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Mock AI game generation, catalog, and $EPIC rewards.")
	r.Spec.SetHTTPBearerTokenSecurity("bearerAuth", "JWT", "Bearer token from /api/auth/login.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /ws
	getWS, _ := r.NewOperationContext(http.MethodGet, "/ws")
	getWS.SetSummary("Realtime relay")
	getWS.SetDescription("Upgrades to a WebSocket. Pass a bearer token as ?token= or Authorization to join as that user; otherwise a guest.")
	getWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getWS)

	// GET /api/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/events")
	getEvents.SetSummary("Relay event stream")
	getEvents.SetDescription("Server-sent events carrying the same envelopes as /ws. Receive only. A token adds the user's private topics.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	for _, op := range operations {
		oc, err := r.NewOperationContext(op.method, op.path)
		if err != nil {
			continue
		}
		oc.SetSummary(op.summary)
		if op.description != "" {
			oc.SetDescription(op.description)
		}
		if op.request != nil {
			oc.AddReqStructure(op.request)
		}
		for _, resp := range op.responses {
			oc.AddRespStructure(resp.body, openapi.WithHTTPStatus(resp.status))
		}
		if op.auth {
			oc.AddSecurity("bearerAuth")
		}
		_ = r.AddOperation(oc)
	}

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
