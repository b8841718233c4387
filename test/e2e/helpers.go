//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"
	"unicode"

	"github.com/cloo-solutions/askdesk/internal/api/handlers"
	"github.com/cloo-solutions/askdesk/internal/api/middleware"
	"github.com/cloo-solutions/askdesk/internal/domain"
	"github.com/cloo-solutions/askdesk/internal/extract"
	"github.com/cloo-solutions/askdesk/internal/jobs"
	"github.com/cloo-solutions/askdesk/internal/metrics"
	"github.com/cloo-solutions/askdesk/internal/repository"
	"github.com/cloo-solutions/askdesk/internal/server"
	"github.com/cloo-solutions/askdesk/internal/service"
	"github.com/cloo-solutions/askdesk/internal/storage"
	"github.com/cloo-solutions/askdesk/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap/zaptest"
)

const embeddingDims = 256

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	S3Client     *storage.S3Client
	HTTPClient   *http.Client
}

// APIResponse is the envelope every endpoint answers with.
type APIResponse struct {
	Status int             `json:"-"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error,omitempty"`
	Code   string          `json:"code,omitempty"`
}

var (
	itAdmin       = domain.Requester{ID: "adm-1", Role: domain.RoleAdmin, Department: "IT"}
	salesEmployee = domain.Requester{ID: "emp-1", Role: domain.RoleEmployee, Department: "Sales"}
	itEmployee    = domain.Requester{ID: "emp-2", Role: domain.RoleEmployee, Department: "IT"}
)

// SetupE2EEnv creates a full E2E test environment with containers and server
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC)

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     testutil.RustFSAccessKey,
		SecretAccessKey: testutil.RustFSSecretKey,
		Bucket:          "test-documents",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser := startServer(t, pool, s3Client, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		RustFSC:      s3C,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		S3Client:     s3Client,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

func (e *E2ETestEnv) Get(path string, as domain.Requester) (*APIResponse, error) {
	return e.doRequest(http.MethodGet, path, nil, "application/json", as)
}

func (e *E2ETestEnv) Post(path string, body interface{}, as domain.Requester) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}
	return e.doRequest(http.MethodPost, path, reqBody, "application/json", as)
}

// Upload posts a multipart document upload.
func (e *E2ETestEnv) Upload(fileName string, content []byte, tier string, as domain.Requester) (*APIResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if tier != "" {
		if err := writer.WriteField("access_tier", tier); err != nil {
			return nil, err
		}
	}
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return e.doRequest(http.MethodPost, "/documents", &buf, writer.FormDataContentType(), as)
}

func (e *E2ETestEnv) doRequest(method, path string, body io.Reader, contentType string, as domain.Requester) (*APIResponse, error) {
	req, err := http.NewRequest(method, e.ServerURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	if as.ID != "" {
		req.Header.Set(middleware.HeaderRequesterID, as.ID)
		req.Header.Set(middleware.HeaderRequesterRole, as.Role)
		req.Header.Set(middleware.HeaderRequesterDepartment, as.Department)
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	apiResp := &APIResponse{Status: resp.StatusCode}
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, apiResp); err != nil {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
	}
	return apiResp, nil
}

// WaitForStatus polls the status endpoint until the document leaves the in-progress states.
func (e *E2ETestEnv) WaitForStatus(documentID string, as domain.Requester, timeout time.Duration) string {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := e.Get("/documents/"+documentID+"/status", as)
		if err != nil {
			e.T.Fatalf("status request failed: %v", err)
		}
		var status handlers.DocumentStatusResponse
		if err := json.Unmarshal(resp.Data, &status); err != nil {
			e.T.Fatalf("failed to parse status: %v", err)
		}
		switch domain.DocumentStatus(status.Status) {
		case domain.DocumentStatusIndexed, domain.DocumentStatusFailed:
			return status.Status
		}
		time.Sleep(100 * time.Millisecond)
	}
	e.T.Fatalf("document %s did not finish ingesting within %s", documentID, timeout)
	return ""
}

// startServer wires the real services against the containers, with a bag-of-words
// embedder and an echoing completion client standing in for the model API.
func startServer(t *testing.T, pool *pgxpool.Pool, s3Client *storage.S3Client, port int) (string, func()) {
	logger := zaptest.NewLogger(t)
	m := metrics.New()

	documentRepo := repository.NewDocumentRepository(pool)
	knowledgeRepo := repository.NewKnowledgeItemRepository(pool)
	queryRepo := repository.NewQueryRepository(pool)
	chunkRepo := repository.NewDocumentChunkRepository(pool)
	txRunner := repository.NewTxRunner(pool)
	embedder := bagOfWordsEmbedder{}

	pipeline := service.NewIngestionPipeline(service.IngestionDeps{
		Documents: documentRepo,
		Store:     s3Client,
		Extractor: extract.NewExtractor(),
		Embedder:  embedder,
		Index:     chunkRepo,
		Metrics:   m,
	}, service.DefaultChunkConfig(), "bag-of-words", logger)
	dispatcher := jobs.NewDispatcher(pipeline, 2, logger)

	documentSvc := service.NewDocumentService(documentRepo, s3Client, dispatcher, chunkRepo, service.DocumentLimits{}, logger)
	knowledgeSvc := service.NewKnowledgeService(knowledgeRepo, txRunner, logger)
	queryEngine := service.NewQueryEngine(service.QueryDeps{
		Knowledge:  knowledgeRepo,
		Documents:  documentRepo,
		Queries:    queryRepo,
		TxRunner:   txRunner,
		Embedder:   embedder,
		Index:      chunkRepo,
		Completion: echoCompletion{},
		Metrics:    m,
	}, service.DefaultRAGConfig(), logger)

	router := server.NewRouter(server.RouterConfig{
		KnowledgeHandler: handlers.NewKnowledgeHandler(knowledgeSvc),
		DocumentHandler:  handlers.NewDocumentHandler(documentSvc),
		QueryHandler:     handlers.NewQueryHandler(queryEngine),
		Logger:           logger,
		Observer:         m,
		Registry:         m.Registry(),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
		dispatcher.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// bagOfWordsEmbedder hashes lowercase words into a fixed number of buckets and normalizes.
type bagOfWordsEmbedder struct{}

func (bagOfWordsEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, embeddingDims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[h.Sum32()%embeddingDims]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	if norm == 0 {
		return nil, fmt.Errorf("no words to embed")
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

type echoCompletion struct{}

func (echoCompletion) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return "Based on the documents: " + userPrompt[:min(len(userPrompt), 80)], nil
}
