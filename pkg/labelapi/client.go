package labelapi

// labelapi talks to the dataset backend, which owns the frames, runs the detection model,
// and stores saved masks.

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/cyclopcam/www"
)

// ErrStatus is returned (wrapped) when the backend replies with a status other than "ok"
var ErrStatus = errors.New("backend status not ok")

// errNotFound is returned by doJSON for a 404 response
var errNotFound = errors.New("not found")

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient creates a backend client. A nil httpClient means http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTP:    httpClient,
	}
}

func (c *Client) frameURL(prefix, video, frame string) string {
	return c.BaseURL + prefix + "/" + url.PathEscape(video) + "/" + url.PathEscape(frame)
}

// ImageURL returns the URL of the frame image
func (c *Client) ImageURL(video, frame string) string {
	return c.frameURL("/api/dataset/images", video, frame)
}

// AnalyseFrame runs the detection model on a frame
func (c *Client) AnalyseFrame(ctx context.Context, video, frame string) (*AnalysisResult, error) {
	resp := analyseResponse{}
	if err := c.doJSON(ctx, "GET", c.frameURL("/api/analyse_image", video, frame), nil, &resp); err != nil {
		return nil, fmt.Errorf("analyse %v/%v: %w", video, frame, err)
	}
	if resp.Status != StatusOK {
		return nil, fmt.Errorf("analyse %v/%v: %w", video, frame, statusError(resp.Status, resp.Error))
	}
	if resp.Result == nil {
		return &AnalysisResult{}, nil
	}
	return resp.Result, nil
}

// Classes fetches the class vocabulary of the detection model
func (c *Client) Classes(ctx context.Context) ([]string, error) {
	resp := classesResponse{}
	if err := c.doJSON(ctx, "GET", c.BaseURL+"/api/analyse_image/get_classes", nil, &resp); err != nil {
		return nil, fmt.Errorf("get classes: %w", err)
	}
	if resp.Status != StatusOK {
		return nil, fmt.Errorf("get classes: %w", statusError(resp.Status, resp.Error))
	}
	classes := []string{}
	raw := bytes.TrimSpace(resp.Classes)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, fmt.Errorf("get classes: invalid response, 'classes' is not an array")
	}
	if err := json.Unmarshal(raw, &classes); err != nil {
		return nil, fmt.Errorf("get classes: invalid response: %w", err)
	}
	return classes, nil
}

// LoadMask fetches the previously saved annotations of a frame.
// If the frame has never been saved, found is false and err is nil.
func (c *Client) LoadMask(ctx context.Context, video, frame string) (dets []MaskDetection, found bool, err error) {
	resp := maskResponse{}
	err = c.doJSON(ctx, "GET", c.frameURL("/api/mask", video, frame), nil, &resp)
	if errors.Is(err, errNotFound) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("load mask %v/%v: %w", video, frame, err)
	}
	if resp.Status != StatusOK {
		return nil, false, fmt.Errorf("load mask %v/%v: %w", video, frame, statusError(resp.Status, resp.Error))
	}
	if resp.Result == nil {
		return nil, true, nil
	}
	return resp.Result.Detections, true, nil
}

// SaveMask replaces the saved annotations of a frame
func (c *Client) SaveMask(ctx context.Context, video, frame string, dets []MaskDetection) error {
	if dets == nil {
		dets = []MaskDetection{}
	}
	resp := saveResponse{}
	if err := c.doJSON(ctx, "POST", c.frameURL("/api/mask", video, frame), &MaskRequest{Detections: dets}, &resp); err != nil {
		return fmt.Errorf("save mask %v/%v: %w", video, frame, err)
	}
	// An empty acknowledgement is fine, but an explicit failure status is not
	if resp.Status != "" && resp.Status != StatusOK {
		return fmt.Errorf("save mask %v/%v: %w", video, frame, statusError(resp.Status, resp.Error))
	}
	return nil
}

func statusError(status, msg string) error {
	if msg != "" {
		return fmt.Errorf("%w: %v (%v)", ErrStatus, status, msg)
	}
	return fmt.Errorf("%w: %q", ErrStatus, status)
}

// doJSON sends body (if not nil) as JSON, and decodes the response into output.
// An empty response body leaves output untouched.
func (c *Client) doJSON(ctx context.Context, method, url string, body any, output any) error {
	var reader io.Reader
	if body != nil {
		bodyB, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(bodyB)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return errNotFound
	}
	if resp.StatusCode >= 300 {
		return errors.New(www.FailedRequestSummary(resp, nil))
	}
	defer resp.Body.Close()
	respB, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(respB)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respB, output); err != nil {
		return fmt.Errorf("%v. %w", resp.Status, err)
	}
	return nil
}

// LoadClassFile loads a text file with class names on each line
func LoadClassFile(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	classes := []string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			classes = append(classes, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return classes, nil
}
