package client

import (
	"context"
	"io"
	"net/http"
	"strings"

	"vaultapi/internal/transfer"
)

// ProgressFunc receives the bytes sent so far and the total (-1 when unknown).
type ProgressFunc func(sent, total int64)

type progressReader struct {
	r        io.Reader
	total    int64
	sent     int64
	progress ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.progress != nil {
		p.sent += int64(n)
		p.progress(p.sent, p.total)
	}
	return n, err
}

// Upload PUTs r to the ticket's presigned URL. The ticket's content type is sent as issued,
// since the signature may cover it. size may be -1 when unknown.
func (c *Client) Upload(ctx context.Context, tk transfer.UploadTicket, r io.Reader, size int64, progress ProgressFunc) error {
	body := &progressReader{r: r, total: size, progress: progress}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, tk.URL, body)
	if err != nil {
		return err
	}
	if size >= 0 {
		req.ContentLength = size
	}
	if tk.ContentType != "" {
		req.Header.Set("Content-Type", tk.ContentType)
	}
	return c.direct(req, nil)
}

// Download GETs the ticket's presigned URL into w and returns the number of bytes written.
func (c *Client) Download(ctx context.Context, tk transfer.DownloadTicket, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tk.URL, nil)
	if err != nil {
		return 0, err
	}
	var n int64
	err = c.direct(req, func(r io.Reader) error {
		var cerr error
		n, cerr = io.Copy(w, r)
		return cerr
	})
	return n, err
}

// direct sends a request straight to object storage, without API credentials. Large
// transfers may outlive the API timeout; cancel ctx to abort them.
func (c *Client) direct(req *http.Request, consume func(io.Reader) error) error {
	resp, err := c.transferClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	if consume == nil {
		_, err = io.Copy(io.Discard, resp.Body)
		return err
	}
	return consume(resp.Body)
}
