// Package document asks an external renderer for the contracts a request needs and files the
// result under the document root.
package document

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/condo/internal/ledger"
	"github.com/MrJamesThe3rd/condo/internal/property"
)

type Kind string

const (
	LeaseContract   Kind = "lease_contract"
	MoveInInventory Kind = "move_in_inventory"
	SaleContract    Kind = "sale_contract"
)

// KindsFor lists the documents that must be signed before a request of type t can complete.
func KindsFor(t ledger.RequestType) []Kind {
	switch t {
	case ledger.RequestRental:
		return []Kind{LeaseContract, MoveInInventory}
	case ledger.RequestPurchase:
		return []Kind{SaleContract}
	}

	return nil
}

// Parties are the people named on a generated document.
type Parties struct {
	RequesterID uuid.UUID  `json:"requester_id"`
	OwnerID     *uuid.UUID `json:"owner_id,omitempty"`
	AdminID     *uuid.UUID `json:"admin_id,omitempty"`
}

// Generated locates a stored document relative to the document root.
type Generated struct {
	Filename    string
	Path        string
	GeneratedAt time.Time
}

type renderRequest struct {
	Kind     Kind            `json:"kind"`
	Request  renderedRequest `json:"request"`
	Unit     *renderedUnit   `json:"unit,omitempty"`
	Building *renderedPlace  `json:"building,omitempty"`
	Parties  Parties         `json:"parties"`
}

type renderedRequest struct {
	ID          uuid.UUID          `json:"id"`
	Type        ledger.RequestType `json:"type"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
}

type renderedUnit struct {
	ID     uuid.UUID `json:"id"`
	Number string    `json:"number"`
}

type renderedPlace struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type Client struct {
	baseURL string
	token   string
	root    string
	client  *http.Client
	now     func() time.Time
}

func NewClient(baseURL, token, root string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		root:    root,
		client:  &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

// Generate renders one document and stores it under <root>/<building>/<request>/.
func (c *Client) Generate(ctx context.Context, kind Kind, req *ledger.Request, unit *property.Unit, building *property.Building, parties Parties) (Generated, error) {
	payload := renderRequest{
		Kind: kind,
		Request: renderedRequest{
			ID:          req.ID,
			Type:        req.Type,
			Title:       req.Title,
			Description: req.Description,
		},
		Parties: parties,
	}

	if unit != nil {
		payload.Unit = &renderedUnit{ID: unit.ID, Number: unit.Number}
	}

	if building != nil {
		payload.Building = &renderedPlace{ID: building.ID, Name: building.Name}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Generated{}, fmt.Errorf("encoding render request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/render", bytes.NewReader(body))
	if err != nil {
		return Generated{}, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	if c.token != "" {
		httpReq.Header.Set("Authorization", "Token "+c.token)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Generated{}, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Generated{}, fmt.Errorf("unexpected status code %d rendering %s", resp.StatusCode, kind)
	}

	generatedAt := c.now().UTC()
	filename := determineFilename(resp, kind, generatedAt)

	buildingDir := "unassigned"
	if building != nil {
		buildingDir = building.ID.String()
	}

	rel := filepath.Join(buildingDir, req.ID.String(), filename)
	abs := filepath.Join(c.root, rel)

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return Generated{}, fmt.Errorf("creating document directory: %w", err)
	}

	f, err := os.Create(abs)
	if err != nil {
		return Generated{}, fmt.Errorf("creating file: %w", err)
	}

	_, err = io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}

	if err != nil {
		os.Remove(abs)
		return Generated{}, fmt.Errorf("writing file: %w", err)
	}

	return Generated{Filename: filename, Path: filepath.ToSlash(rel), GeneratedAt: generatedAt}, nil
}

func determineFilename(resp *http.Response, kind Kind, at time.Time) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			name := strings.ReplaceAll(filepath.Base(params["filename"]), " ", "_")
			if name != "." && name != ".." && name != string(filepath.Separator) {
				return name
			}
		}
	}

	ext := ".pdf"

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if exts, _ := mime.ExtensionsByType(ct); len(exts) > 0 {
			ext = exts[0]
		}
	}

	// Format: <kind>_YYYYMMDDhhmmss.ext
	return fmt.Sprintf("%s_%s%s", kind, at.Format("20060102150405"), ext)
}
