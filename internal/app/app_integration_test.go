//go:build integration

package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vadimbarashkov/swooosh/internal/config"

	pgpkg "github.com/vadimbarashkov/swooosh/pkg/postgres"
)

type AppTestSuite struct {
	suite.Suite
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan error
	pgCont    *tcpostgres.PostgresContainer
	redisCont *tcredis.RedisContainer
	db        *sqlx.DB
	e         *httpexpect.Expect
}

func freePort(t *testing.T) int {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	return l.Addr().(*net.TCPAddr).Port
}

func (suite *AppTestSuite) SetupSuite() {
	ctx := context.Background()

	pgCont, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("swooosh"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(suite.T(), err)
	suite.pgCont = pgCont

	redisCont, err := tcredis.Run(ctx,
		"redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(suite.T(), err)
	suite.redisCont = redisCont

	dsn, err := pgCont.ConnectionString(ctx, "sslmode=disable")
	require.NoError(suite.T(), err)

	redisURL, err := redisCont.ConnectionString(ctx)
	require.NoError(suite.T(), err)

	migrations, err := filepath.Abs("../../migrations")
	require.NoError(suite.T(), err)

	cfg, err := config.Load("")
	require.NoError(suite.T(), err)

	cfg.HTTPServer.Port = freePort(suite.T())
	cfg.Postgres.URL = dsn
	cfg.Postgres.MigrationsPath = "file://" + migrations
	cfg.Redis.URL = redisURL
	cfg.RateLimit.Limit = 3

	suite.ctx, suite.cancel = context.WithCancel(ctx)
	suite.done = make(chan error, 1)

	go func() {
		suite.done <- Run(suite.ctx, cfg)
	}()

	suite.db, err = pgpkg.New(ctx, dsn)
	require.NoError(suite.T(), err)

	baseURL := fmt.Sprintf("http://localhost:%d", cfg.HTTPServer.Port)

	require.Eventually(suite.T(), func() bool {
		resp, err := http.Get(baseURL + "/api/ping")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 30*time.Second, 200*time.Millisecond)

	suite.e = httpexpect.WithConfig(httpexpect.Config{
		TestName: suite.T().Name(),
		BaseURL:  baseURL,
		Client: &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		Reporter: httpexpect.NewAssertReporter(suite.T()),
	})
}

func (suite *AppTestSuite) TearDownSuite() {
	if suite.cancel != nil {
		suite.cancel()
		suite.NoError(<-suite.done)
	}
	if suite.db != nil {
		suite.db.Close()
	}
	if suite.redisCont != nil {
		suite.redisCont.Terminate(context.Background())
	}
	if suite.pgCont != nil {
		suite.pgCont.Terminate(context.Background())
	}
}

func (suite *AppTestSuite) TestPing() {
	suite.e.GET("/api/ping").
		Expect().
		Status(http.StatusOK).
		Text().IsEqual("pong")
}

func (suite *AppTestSuite) TestCreateAndResolve() {
	id := suite.e.POST("/create").
		WithJSON(map[string]string{"url": "https://example.com/landing"}).
		Expect().
		Status(http.StatusCreated).
		JSON().Object().
		HasValue("url", "https://example.com/landing").
		HasValue("clicks", 0).
		Value("id").String().NotEmpty().Raw()

	suite.e.GET("/"+id).
		Expect().
		Status(http.StatusOK).
		Header("Location").IsEqual("https://example.com/landing")

	var clicks int64
	suite.Require().NoError(suite.db.Get(&clicks, `SELECT clicks FROM urls WHERE id = $1`, id))
	suite.Equal(int64(1), clicks)

	suite.e.GET("/i/"+id).
		Expect().
		Status(http.StatusFound).
		Header("Location").IsEqual("/" + id)
}

func (suite *AppTestSuite) TestUnknownPaths() {
	suite.e.GET("/does-not-exist").
		Expect().
		Status(http.StatusNotFound).
		Header("Location").IsEqual("/404")

	suite.e.GET("/a/b/c").
		Expect().
		Status(http.StatusNotFound).
		Header("Location").IsEqual("/404")

	suite.e.GET("/404").
		Expect().
		Status(http.StatusNotFound)
}

func TestAppTestSuite(t *testing.T) {
	suite.Run(t, new(AppTestSuite))
}
