package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chatcut/chatcut/internal/action"
	"github.com/chatcut/chatcut/internal/artifacts"
	"github.com/chatcut/chatcut/internal/filehandler"
	"github.com/chatcut/chatcut/internal/metrics"
	"github.com/rs/zerolog/log"
)

const (
	// Worker uploads are small, so the per-file limit is well below the
	// cloud providers'.
	colabMaxMediaBytes = 20 << 20

	colabRequestTimeout = 2 * time.Minute
)

// Colab sends a clip and a prompt to a remote GPU worker, polls the job until
// it finishes, and stores the processed video.
type Colab struct {
	baseURL      string
	store        artifacts.Store
	pollInterval time.Duration
	jobTimeout   time.Duration
	httpClient   *http.Client
}

// NewColab creates the video-processing provider. rawURL is normalized; an
// empty URL leaves the provider unconfigured.
func NewColab(rawURL string, store artifacts.Store, pollInterval, jobTimeout time.Duration) *Colab {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	if jobTimeout <= 0 {
		jobTimeout = 10 * time.Minute
	}
	return &Colab{
		baseURL:      NormalizeWorkerURL(rawURL),
		store:        store,
		pollInterval: pollInterval,
		jobTimeout:   jobTimeout,
		httpClient:   &http.Client{Timeout: colabRequestTimeout},
	}
}

// NormalizeWorkerURL trims whitespace and trailing slashes and adds https://
// when no scheme is present.
func NormalizeWorkerURL(raw string) string {
	u := strings.TrimRight(strings.TrimSpace(raw), "/")
	if u == "" {
		return ""
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}
	return u
}

func (c *Colab) Name() string { return "colab" }

func (c *Colab) IsConfigured() bool { return c.baseURL != "" }

func (c *Colab) MaxMediaBytes() int64 { return colabMaxMediaBytes }

// colabError carries the result code for a failed worker interaction.
type colabError struct {
	code    string
	message string
	err     error
}

func (e *colabError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *colabError) Unwrap() error { return e.err }

func transportError(err error) *colabError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &colabError{action.CodeTimeout, "The video processing server did not respond in time.", err}
	}
	return &colabError{action.CodeNetworkError, "Could not connect to the video processing server. Check that the Colab notebook is running and COLAB_URL is current.", err}
}

// jobProgress is the worker's progress document.
type jobProgress struct {
	Status      string  `json:"status"`
	Stage       string  `json:"stage"`
	Progress    float64 `json:"progress"`
	Message     string  `json:"message"`
	DownloadURL string  `json:"download_url"`
	Filename    string  `json:"filename"`
	Error       string  `json:"error"`
}

// ProcessPrompt runs one worker job for the first attached clip.
func (c *Colab) ProcessPrompt(ctx context.Context, prompt string, catalog action.Catalog, media []*filehandler.MediaFile) action.Result {
	return guard(c.Name(), func() action.Result {
		if !c.IsConfigured() {
			return action.Failure(action.CodeAPIKeyMissing, "COLAB_URL not configured. Set it to the URL printed by the Colab notebook.")
		}
		if len(media) == 0 {
			return action.Failure(action.CodeNeedsSpecification, "Select a video clip to send to the video processing server.")
		}
		src := media[0]

		start := time.Now()
		outputPath, jobID, err := c.run(ctx, src.Path, prompt)
		if err != nil {
			var ce *colabError
			if !errors.As(err, &ce) {
				ce = transportError(err)
			}
			log.Error().Err(err).Str("code", ce.code).Str("job_id", jobID).Msg("Colab job failed")
			return action.Failure(ce.code, ce.message)
		}

		metrics.New(metrics.Namespace).
			Dimension("Provider", c.Name()).
			Duration("ColabJobMs", time.Since(start)).
			Count("ColabJobs").
			Flush()

		res := action.Success(action.ObjectTracking, map[string]any{},
			fmt.Sprintf("Processed video saved to %s.", outputPath))
		res.OriginalPath = src.Path
		res.OutputPath = outputPath
		res.TaskID = jobID
		return res
	})
}

// writeTrim sends the worker's trim_start and trim_end form fields.
func writeTrim(mw *multipart.Writer, t Trim) error {
	if t.Start > 0 {
		if err := mw.WriteField("trim_start", strconv.FormatFloat(t.Start, 'f', -1, 64)); err != nil {
			return err
		}
	}
	if t.End > 0 {
		return mw.WriteField("trim_end", strconv.FormatFloat(t.End, 'f', -1, 64))
	}
	return nil
}

func (c *Colab) run(ctx context.Context, filePath, prompt string) (outputPath, jobID string, err error) {
	jobID, err = c.startJob(ctx, filePath, prompt)
	if err != nil {
		return "", "", err
	}
	log.Info().Str("job_id", jobID).Str("file", filepath.Base(filePath)).Msg("Colab job started")

	jobCtx, cancel := context.WithTimeout(ctx, c.jobTimeout)
	defer cancel()

	p, err := c.waitForJob(jobCtx, jobID)
	if err != nil {
		return "", jobID, err
	}
	outputPath, err = c.download(ctx, jobID, p)
	return outputPath, jobID, err
}

// startJob uploads the clip and prompt and returns the worker's job id.
func (c *Colab) startJob(ctx context.Context, filePath, prompt string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", &colabError{action.CodeFileNotFound, fmt.Sprintf("Video file not found: %s", filePath), err}
		}
		return "", &colabError{action.CodeFileAccessError, fmt.Sprintf("Cannot read video file: %s", filePath), err}
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := func() error {
			part, err := mw.CreateFormFile("file", filepath.Base(filePath))
			if err != nil {
				return err
			}
			if _, err := io.Copy(part, f); err != nil {
				return err
			}
			if err := mw.WriteField("prompt", prompt); err != nil {
				return err
			}
			if trim, ok := TrimFrom(ctx); ok {
				if err := writeTrim(mw, trim); err != nil {
					return err
				}
			}
			return mw.Close()
		}()
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/process", pr)
	if err != nil {
		pr.CloseWithError(err)
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Warn().Int("status", resp.StatusCode).Str("body", string(body)).Msg("Colab worker rejected job")
		return "", &colabError{action.CodeColabServerError, fmt.Sprintf("The video processing server returned HTTP %d.", resp.StatusCode), nil}
	}

	var started struct {
		JobID   string `json:"job_id"`
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&started); err != nil || started.JobID == "" {
		return "", &colabError{action.CodeNoJobID, "The video processing server did not return a job id.", err}
	}
	return started.JobID, nil
}

// progress fetches the job's current state once.
func (c *Colab) progress(ctx context.Context, jobID string) (*jobProgress, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/progress/"+url.PathEscape(jobID), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &colabError{action.CodeProgressCheckFailed, fmt.Sprintf("Progress check failed with HTTP %d.", resp.StatusCode), nil}
	}
	var p jobProgress
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, &colabError{action.CodeProgressCheckFailed, "Progress response could not be parsed.", err}
	}
	return &p, nil
}

// waitForJob polls until the job completes or fails.
func (c *Colab) waitForJob(ctx context.Context, jobID string) (*jobProgress, error) {
	for {
		p, err := c.progress(ctx, jobID)
		if err != nil {
			return nil, err
		}

		switch p.Status {
		case "complete":
			if p.DownloadURL == "" {
				return nil, &colabError{action.CodeNoDownloadURL, "The job finished but the server did not provide a download URL.", nil}
			}
			return p, nil
		case "error", "not_found":
			msg := p.Error
			if msg == "" {
				msg = p.Message
			}
			return nil, &colabError{action.CodeJobFailed, fmt.Sprintf("Video processing failed: %s", msg), nil}
		}

		log.Debug().
			Str("job_id", jobID).
			Str("stage", p.Stage).
			Float64("progress", p.Progress).
			Msg("Colab job in progress")

		select {
		case <-ctx.Done():
			return nil, &colabError{action.CodeTimeout, "Video processing did not finish in time.", ctx.Err()}
		case <-time.After(c.pollInterval):
		}
	}
}

// download fetches the processed video into the artifact store. The body is
// spooled to a temp file so the store receives a seekable reader.
func (c *Colab) download(ctx context.Context, jobID string, p *jobProgress) (string, error) {
	src, err := c.resolve(p.DownloadURL)
	if err != nil {
		return "", &colabError{action.CodeDownloadFailed, "The download URL is invalid.", err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", &colabError{action.CodeDownloadFailed, "The download URL is invalid.", err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &colabError{action.CodeDownloadFailed, "Could not download the processed video.", err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &colabError{action.CodeDownloadFailed, fmt.Sprintf("Download failed with HTTP %d.", resp.StatusCode), nil}
	}

	tmp, err := os.CreateTemp("", "chatcut-colab-*")
	if err != nil {
		return "", &colabError{action.CodeDownloadFailed, "Could not buffer the processed video.", err}
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		return "", &colabError{action.CodeDownloadFailed, "Could not download the processed video.", err}
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return "", &colabError{action.CodeDownloadFailed, "Could not buffer the processed video.", err}
	}

	name := p.Filename
	if name == "" {
		name = path.Base(src)
	}
	if name == "" || name == "." || name == "/" {
		name = jobID + ".mp4"
	}
	out, err := c.store.Save(ctx, filepath.Base(name), tmp)
	if err != nil {
		return "", &colabError{action.CodeDownloadFailed, "Could not save the processed video.", err}
	}
	log.Info().Str("job_id", jobID).Str("output", out).Msg("Processed video saved")
	return out, nil
}

// resolve joins a relative download URL onto the worker URL.
func (c *Colab) resolve(ref string) (string, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref, nil
	}
	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return "", err
	}
	u, err := base.Parse(strings.TrimPrefix(ref, "/"))
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// Ping calls the worker's health endpoint.
func (c *Colab) Ping(ctx context.Context) error {
	if !c.IsConfigured() {
		return errNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("colab health check returned HTTP %d", resp.StatusCode)
	}

	var health struct {
		Status string `json:"status"`
		GPU    string `json:"gpu"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("decode colab health: %w", err)
	}
	log.Debug().Str("status", health.Status).Str("gpu", health.GPU).Msg("Colab worker healthy")
	return nil
}
