package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/models"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"bitbucket.org/mmdatafocus/pos_backend/workflow"
	"github.com/shopspring/decimal"
)

// setupIntegration boots fresh mysql and redis containers, migrates the
// schema, creates a business and returns a context scoped to it.
func setupIntegration(t *testing.T) context.Context {
	t.Helper()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "pos_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx := context.Background()
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")

	biz, err := models.CreateBusiness(ctx, &models.NewBusiness{
		Name:  "Test Restaurant",
		Email: "owner@test.local",
	})
	if err != nil {
		t.Fatalf("CreateBusiness: %v", err)
	}
	return utils.SetBusinessIdInContext(ctx, biz.ID.String())
}

func TestNextTokenNumberConcurrentAllocation(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := setupIntegration(t)

	const workers = 20
	tokens := make([]int, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = models.NextTokenNumber(ctx, models.TokenScopeGlobal)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("worker %d: %v", i, err)
		}
	}
	sort.Ints(tokens)
	for i, token := range tokens {
		if token != i+1 {
			t.Fatalf("expected tokens 1..%d without gaps or duplicates, got %v", workers, tokens)
		}
	}

	// A station scope runs its own counter, unaffected by the 20 global
	// allocations above.
	stationToken, err := models.NextTokenNumber(ctx, models.StationScope(1))
	if err != nil {
		t.Fatalf("NextTokenNumber(station): %v", err)
	}
	if stationToken != 1 {
		t.Errorf("station token = %d, want 1", stationToken)
	}
}

func TestNextTokenNumberScopesAndDaysIndependent(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := setupIntegration(t)

	for want := 1; want <= 3; want++ {
		got, err := models.NextTokenNumber(ctx, models.TokenScopeGlobal)
		if err != nil {
			t.Fatalf("NextTokenNumber: %v", err)
		}
		if got != want {
			t.Errorf("global token = %d, want %d", got, want)
		}
	}
	for want := 1; want <= 2; want++ {
		got, err := models.NextTokenNumber(ctx, models.StationScope(7))
		if err != nil {
			t.Fatalf("NextTokenNumber(station): %v", err)
		}
		if got != want {
			t.Errorf("station token = %d, want %d", got, want)
		}
	}
}

func TestPlaceOrderConcurrentNumbersUnique(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := setupIntegration(t)

	category, err := models.CreateCategory(ctx, &models.NewCategory{Name: "Drinks"})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	item, err := models.CreateMenuItem(ctx, &models.NewMenuItem{
		Name:       "Lime Juice",
		CategoryId: category.ID,
		Price:      decimal.NewFromInt(1500),
	})
	if err != nil {
		t.Fatalf("CreateMenuItem: %v", err)
	}

	const workers = 10
	placements := make([]*workflow.OrderPlacement, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			placements[i], errs[i] = workflow.PlaceOrder(ctx, &models.NewOrder{
				Source: models.OrderSourceWalkIn,
				Items: []models.NewOrderItem{
					{MenuItemId: &item.ID, Quantity: 2},
				},
			})
		}(i)
	}
	wg.Wait()

	numbers := map[string]bool{}
	tokens := map[int]bool{}
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("PlaceOrder %d: %v", i, errs[i])
		}
		order := placements[i].Order
		if numbers[order.OrderNumber] {
			t.Fatalf("duplicate order number %s", order.OrderNumber)
		}
		numbers[order.OrderNumber] = true
		if tokens[order.TokenNumber] {
			t.Fatalf("duplicate token number %d", order.TokenNumber)
		}
		tokens[order.TokenNumber] = true
		if !order.Total.Equal(decimal.NewFromInt(3000)) {
			t.Errorf("order total = %s, want 3000", order.Total)
		}
	}

	businessDay, err := models.GetBusinessDay(ctx)
	if err != nil {
		t.Fatalf("GetBusinessDay: %v", err)
	}
	day := businessDay.Format("20060102")
	for number := range numbers {
		if !strings.HasPrefix(number, "ORD"+day+"-") {
			t.Errorf("order number %s not on business day %s", number, day)
		}
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("pos-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("pos-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=pos_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
