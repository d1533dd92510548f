package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cucumber/godog"

	"github.com/jsamuelsen/reqsentry/internal/adapters/http/middleware"
)

// featureContext holds state shared across step definitions within a scenario.
type featureContext struct {
	t            *testing.T
	server       *httptest.Server
	events       *recordedEvents
	client       *http.Client
	response     *http.Response
	responseBody []byte
}

func (fc *featureContext) reset() {
	if fc.server != nil {
		fc.server.Close()
	}
	fc.server = nil
	fc.events = nil
	fc.response = nil
	fc.responseBody = nil
}

func (fc *featureContext) theServiceIsRunning() error {
	engine, events := newTestRouter(fc.t)
	fc.server = httptest.NewServer(engine)
	fc.events = events
	fc.client = &http.Client{Timeout: 5 * time.Second}

	return nil
}

func (fc *featureContext) do(method, path, body string, header http.Header) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var reader io.Reader = http.NoBody
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, fc.server.URL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := fc.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	fc.response = resp
	fc.responseBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	return nil
}

func (fc *featureContext) iRequestGET(path string) error {
	return fc.do(http.MethodGet, path, "", nil)
}

func (fc *featureContext) iRequestGETWithRequestID(path, requestID string) error {
	header := http.Header{}
	header.Set(middleware.HeaderRequestID, requestID)

	return fc.do(http.MethodGet, path, "", header)
}

func (fc *featureContext) iPOSTWithBody(path string, body *godog.DocString) error {
	return fc.do(http.MethodPost, path, body.Content, nil)
}

func (fc *featureContext) theResponseStatusShouldBe(expected int) error {
	if fc.response == nil {
		return errors.New("no response received")
	}

	if fc.response.StatusCode != expected {
		return fmt.Errorf("expected status %d, got %d. Body: %s",
			expected, fc.response.StatusCode, string(fc.responseBody))
	}

	return nil
}

func (fc *featureContext) theResponseShouldContain(text string) error {
	if !strings.Contains(string(fc.responseBody), text) {
		return fmt.Errorf("response body does not contain %q.\nBody: %s", text, fc.responseBody)
	}

	return nil
}

func (fc *featureContext) theResponseShouldNotContain(text string) error {
	if strings.Contains(string(fc.responseBody), text) {
		return fmt.Errorf("response body unexpectedly contains %q.\nBody: %s", text, fc.responseBody)
	}

	return nil
}

func (fc *featureContext) eventsShouldHaveBeenCaptured(count int) error {
	if got := len(fc.events.snapshot()); got != count {
		return fmt.Errorf("expected %d captured events, got %d", count, got)
	}

	return nil
}

func (fc *featureContext) theLastEventShouldHaveTag(name, value string) error {
	captured := fc.events.snapshot()
	if len(captured) == 0 {
		return errors.New("no events captured")
	}

	last := captured[len(captured)-1]
	if got := last.Tags[name]; got != value {
		return fmt.Errorf("expected tag %s=%q, got %q", name, value, got)
	}

	return nil
}

func initializeScenario(t *testing.T) func(*godog.ScenarioContext) {
	return func(ctx *godog.ScenarioContext) {
		fc := &featureContext{t: t}

		ctx.After(func(ctx context.Context, _ *godog.Scenario, _ error) (context.Context, error) {
			fc.reset()
			return ctx, nil
		})

		ctx.Step(`^the service is running$`, fc.theServiceIsRunning)
		ctx.Step(`^I request GET "([^"]*)"$`, fc.iRequestGET)
		ctx.Step(`^I request GET "([^"]*)" with request id "([^"]*)"$`, fc.iRequestGETWithRequestID)
		ctx.Step(`^I POST "([^"]*)" with body:$`, fc.iPOSTWithBody)
		ctx.Step(`^the response status should be (\d+)$`, fc.theResponseStatusShouldBe)
		ctx.Step(`^the response should contain "([^"]*)"$`, fc.theResponseShouldContain)
		ctx.Step(`^the response should not contain "([^"]*)"$`, fc.theResponseShouldNotContain)
		ctx.Step(`^(\d+) events? should have been captured$`, fc.eventsShouldHaveBeenCaptured)
		ctx.Step(`^the last event should have tag "([^"]*)" set to "([^"]*)"$`, fc.theLastEventShouldHaveTag)
	}
}

// TestFeatures runs the BDD scenarios against the full router.
func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "reqsentry",
		ScenarioInitializer: initializeScenario(t),
		Options: &godog.Options{
			Format:   "progress",
			Paths:    []string{"testdata/features"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
