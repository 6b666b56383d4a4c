package repetier

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"runtime"
	"time"

	"github.com/google/uuid"
)

// UploadPhase tracks an upload session through its life.
type UploadPhase int

const (
	PhasePosting UploadPhase = iota + 1
	PhaseAwaitingModelID
	PhaseCopyingModel
	PhaseDone
	PhaseFailed
)

func (p UploadPhase) String() string {
	switch p {
	case PhasePosting:
		return "posting"
	case PhaseAwaitingModelID:
		return "awaiting-model-id"
	case PhaseCopyingModel:
		return "copying-model"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// uploadSession is owned exclusively by the event loop. requestID refers to
// whichever request the session is currently waiting on: first the multipart
// POST, then the copyModel GET.
type uploadSession struct {
	requestID uuid.UUID
	fileName  string
	phase     UploadPhase
	percent   float64
	ctx       context.Context
	cancel    context.CancelFunc
}

// payloadYieldEvery bounds how long payload assembly may hog the scheduler
// before yielding.
const payloadYieldEvery = 50 * time.Millisecond

// StartPrint stages payloadLines as "<jobName>.gcode", uploads it as
// multipart form data, and on success issues the copyModel request that
// materializes it as a print job. It returns ErrJobBusy, without sending
// anything, while a job is printing or paused or another upload is running.
func (c *Connection) StartPrint(jobName string, payloadLines []string) error {
	return c.call(func() error { return c.startPrint(jobName, payloadLines) })
}

func (c *Connection) startPrint(jobName string, lines []string) error {
	if c.upload != nil {
		return ErrJobBusy
	}
	// An empty state means no job poll has answered yet; the server decides
	// then whether it is actually busy.
	if c.job.State != JobReady && c.job.State != "" {
		return ErrJobBusy
	}

	fileName := jobName + ".gcode"
	ctx, cancel := context.WithCancel(c.runCtx)
	session := &uploadSession{fileName: fileName, phase: PhasePosting, ctx: ctx, cancel: cancel}
	c.upload = session
	c.publishUpload()
	log.Printf("repetier: sending %s (%d lines)", fileName, len(lines))

	// Assembly can take a while for a large model; it runs off the loop and
	// posts the finished body back in.
	go func() {
		payload := assemblePayload(lines)
		body, contentType, err := buildMultipart(fileName, payload)
		if err != nil {
			_ = c.post(func() {
				if c.upload == session {
					c.failUpload(fmt.Sprintf("build upload body: %v", err))
				}
			})
			return
		}
		_ = c.post(func() {
			if c.upload != session || session.phase != PhasePosting {
				return // aborted while assembling
			}
			session.requestID = c.issueWith(session.ctx, Request{
				Kind:          KindUpload,
				Method:        http.MethodPost,
				URL:           c.endpoint.UploadURL(fileName),
				APIKey:        c.endpoint.APIKey,
				ContentType:   contentType,
				Body:          body,
				TrackProgress: true,
			})
		})
	}()
	return nil
}

// assemblePayload concatenates the payload lines into one buffer, yielding
// the processor every ~50ms of work so a large job does not starve the rest
// of the program.
func assemblePayload(lines []string) []byte {
	var buf bytes.Buffer
	lastYield := time.Now()
	for _, line := range lines {
		buf.WriteString(line)
		if time.Since(lastYield) >= payloadYieldEvery {
			runtime.Gosched()
			lastYield = time.Now()
		}
	}
	return buf.Bytes()
}

// buildMultipart wraps the payload in a single-part form body.
func buildMultipart(fileName string, payload []byte) (body []byte, contentType string, err error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", fileName)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return nil, "", fmt.Errorf("write form file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// handleUploadProgress applies progress monotonically: a value is published
// only if it exceeds the previous one, except that progress resets to zero
// while the total size is unknown. Reaching 100% swaps the "sending"
// indicator for "storing".
func (c *Connection) handleUploadProgress(m UploadProgress) {
	u := c.upload
	if u == nil || m.ID != u.requestID {
		return
	}
	if m.Total <= 0 {
		u.percent = 0
		c.publishUpload()
		return
	}

	// Progress doubles as a liveness signal: a long upload must not be
	// misclassified as a stall.
	c.lastResponseAt = c.now()

	percent := float64(m.Sent) / float64(m.Total) * 100
	if percent >= 100 {
		if u.phase == PhasePosting {
			u.percent = 100
			u.phase = PhaseAwaitingModelID
			c.publishUpload()
		}
		return
	}
	if percent > u.percent {
		u.percent = percent
		c.publishUpload()
	}
}

// handleUploadResponse completes the POST leg: parse the stored model list,
// then ask the server to copy the newest model into the print queue.
func (c *Connection) handleUploadResponse(comp Completion) {
	u := c.upload
	if u == nil {
		return
	}
	if comp.Status != http.StatusCreated {
		c.failUpload(fmt.Sprintf("server returned status %d", comp.Status))
		return
	}

	modelID, err := ParseModelList(comp.Body)
	if err != nil {
		c.failUpload(err.Error())
		return
	}

	u.phase = PhaseCopyingModel
	u.requestID = c.issueWith(u.ctx, Request{
		Kind:   KindModelCopy,
		Method: http.MethodGet,
		URL:    c.endpoint.CopyModelURL(modelID),
		APIKey: c.endpoint.APIKey,
	})
	c.publishUpload()

	if !c.autoPrint {
		if loc := comp.Header.Get("Location"); loc != "" {
			c.publisher.Notice(Notice{
				Text: fmt.Sprintf("saved to Repetier-Server as %s", locationFileName(loc)),
				Link: c.endpoint.WebURL(),
			})
		} else {
			c.publisher.Notice(Notice{Text: "saved to Repetier-Server", Link: c.endpoint.WebURL()})
		}
	}
}

func (c *Connection) handleModelCopyResponse(comp Completion) {
	u := c.upload
	if u == nil {
		return
	}
	if comp.Status >= 400 {
		c.failUpload(fmt.Sprintf("copy model returned status %d", comp.Status))
		return
	}
	u.phase = PhaseDone
	u.cancel()
	c.upload = nil
	c.publisher.UploadUpdated(UploadStatus{FileName: u.fileName, Percent: 100})
	c.publisher.Notice(Notice{Text: fmt.Sprintf("%s stored on Repetier-Server", u.fileName)})
	log.Printf("repetier: upload %s complete", u.fileName)
}

// failUpload aborts the session's outstanding request, clears the progress
// indicator, and surfaces the failure. No "saved" notice is emitted.
func (c *Connection) failUpload(reason string) {
	u := c.upload
	if u == nil {
		return
	}
	u.phase = PhaseFailed
	u.cancel()
	c.upload = nil
	c.publisher.UploadUpdated(UploadStatus{})
	c.publisher.Notice(Notice{Text: "unable to send job to Repetier-Server: " + reason, Err: true})
	log.Printf("repetier: upload %s failed: %s", u.fileName, reason)
}

// abortUpload fails whatever upload is in flight; used when the network goes
// away or the connection closes.
func (c *Connection) abortUpload(reason string) {
	if c.upload == nil {
		return
	}
	c.failUpload(reason)
}

func (c *Connection) publishUpload() {
	u := c.upload
	if u == nil {
		c.publisher.UploadUpdated(UploadStatus{})
		return
	}
	c.publisher.UploadUpdated(UploadStatus{
		Active:   true,
		FileName: u.fileName,
		Percent:  u.percent,
		Storing:  u.phase == PhaseAwaitingModelID || u.phase == PhaseCopyingModel,
	})
}

// locationFileName extracts the file name from an upload Location header.
func locationFileName(location string) string {
	if parsed, err := url.Parse(location); err == nil && parsed.Path != "" {
		return path.Base(parsed.Path)
	}
	return path.Base(location)
}
