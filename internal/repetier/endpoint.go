package repetier

import (
	"fmt"
	"net/url"
	"strings"
)

// apiKeyHeader is the authentication header Repetier-Server expects.
const apiKeyHeader = "X-Api-Key"

// defaultCameraPort is where the mjpg-streamer snapshot endpoint lives when
// the config does not override it.
const defaultCameraPort = 8080

// Endpoint describes one Repetier-Server instance. It is built once at
// connection construction and read-only afterwards; all request URLs derive
// from it.
type Endpoint struct {
	Host       string
	Port       int
	BasePath   string
	Slug       string
	APIKey     string
	CameraPort int

	baseURL  string
	apiURL   string
	modelURL string
}

// NewEndpoint derives the base, API, and model URLs for a server instance.
// path defaults to "/" and cameraPort to 8080 when zero-valued.
func NewEndpoint(host string, port int, path, slug, apiKey string, cameraPort int) Endpoint {
	if strings.TrimSpace(path) == "" {
		path = "/"
	}
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	if cameraPort <= 0 {
		cameraPort = defaultCameraPort
	}
	base := fmt.Sprintf("http://%s:%d%s", host, port, path)
	return Endpoint{
		Host:       host,
		Port:       port,
		BasePath:   path,
		Slug:       slug,
		APIKey:     apiKey,
		CameraPort: cameraPort,
		baseURL:    base,
		apiURL:     base + "printer/api/" + slug,
		modelURL:   base + "printer/model/" + slug,
	}
}

// WebURL is the address of the server's web interface, used for "saved as"
// notices.
func (e Endpoint) WebURL() string { return e.baseURL }

// StateListURL polls printer state (temperatures).
func (e Endpoint) StateListURL() string { return e.apiAction("stateList", "") }

// JobListURL polls the printer/job list.
func (e Endpoint) JobListURL() string { return e.apiAction("listPrinter", "") }

// ContinueJobURL resumes a paused job.
func (e Endpoint) ContinueJobURL() string { return e.apiAction("continueJob", "") }

// StopJobURL cancels the running job.
func (e Endpoint) StopJobURL() string { return e.apiAction("stopJob", "") }

// SendCommandURL queues a raw printer command (G-code or @-directive).
func (e Endpoint) SendCommandURL(cmd string) string {
	return e.apiAction("send", fmt.Sprintf(`{"cmd":%q}`, cmd))
}

// CopyModelURL materializes a stored model as a print job.
func (e Endpoint) CopyModelURL(modelID int64) string {
	return e.apiAction("copyModel", fmt.Sprintf(`{"id": %d}`, modelID))
}

// UploadURL stores a G-code file on the server under the given file name.
func (e Endpoint) UploadURL(fileName string) string {
	values := url.Values{}
	values.Set("a", "upload")
	values.Set("name", fileName)
	return e.modelURL + "?" + values.Encode()
}

// SnapshotURL fetches a camera frame. The snapshot service is unauthenticated
// and runs on its own port.
func (e Endpoint) SnapshotURL() string {
	return fmt.Sprintf("http://%s:%d/?action=snapshot", e.Host, e.CameraPort)
}

func (e Endpoint) apiAction(action, data string) string {
	values := url.Values{}
	values.Set("a", action)
	if data != "" {
		values.Set("data", data)
	}
	return e.apiURL + "?" + values.Encode()
}
