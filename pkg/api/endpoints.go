package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/nafeeshossain/allergen-detector/pkg/catalog"
	"github.com/nafeeshossain/allergen-detector/pkg/detect"
	"github.com/nafeeshossain/allergen-detector/pkg/history"
	"github.com/nafeeshossain/allergen-detector/pkg/kit"
	"github.com/nafeeshossain/allergen-detector/pkg/ocr"
)

// ErrProductNotFound means the barcode is not in the products catalog.
var ErrProductNotFound = errors.New("product not found")

// ErrOCRFailed means the uploaded image could not be read as a label.
// Distinct from a successful scan that finds no allergens.
var ErrOCRFailed = errors.New("could not extract text from image")

// Service bundles the shared state behind the endpoints. History is
// optional; without it scans are not persisted and the feedback and
// history surfaces are disabled.
type Service struct {
	Registry *catalog.Registry
	History  *history.Store
}

// detector builds a Detector over the current catalog snapshot. Cheap:
// the catalogs themselves are shared and read-only.
func (s *Service) detector() *detect.Detector {
	return detect.New(s.Registry.Allergens(), s.Registry.Weights())
}

// Shared request/response types used by both HTTP and MCP transports.

type scanReq struct {
	Text      string
	User      string
	Product   string
	Allergens []string
	Opts      detect.Options
}

type scanImageReq struct {
	Image     []byte
	Language  string
	User      string
	Product   string
	Allergens []string
	Opts      detect.Options
}

type barcodeReq struct {
	Code      string
	User      string
	Allergens []string
	Opts      detect.Options
}

type barcodeResponse struct {
	Product catalog.Product    `json:"product"`
	Result  *detect.ScanResult `json:"result"`
}

type allergenInfo struct {
	Key      string `json:"key"`
	Display  string `json:"display"`
	Synonyms int    `json:"synonyms"`
}

type allergensResponse struct {
	Allergens []allergenInfo `json:"allergens"`
	Catalogs  []catalog.Info `json:"catalogs"`
}

type feedbackListReq struct {
	Product string
	Limit   int
}

type feedbackResponse struct {
	Items []history.Feedback     `json:"items"`
	Top   []history.ProductCount `json:"top_products"`
}

type historyReq struct {
	User  string
	Limit int
}

type historyResponse struct {
	Scans []history.Scan `json:"scans"`
}

// Endpoints. HTTP handlers and MCP tools dispatch to these.

func scanEndpoint(s *Service) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*scanReq)
		res := s.detector().Detect(req.Text, req.Allergens, req.Opts)
		if err := s.saveScan(req.User, req.Product, res); err != nil {
			return nil, err
		}
		return res, nil
	}
}

func scanImageEndpoint(s *Service) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*scanImageReq)
		text, err := ocr.ReadLabel(req.Image, req.Language)
		if err != nil {
			if errors.Is(err, ocr.ErrUnavailable) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", ErrOCRFailed, err)
		}

		res := s.detector().Detect(text, req.Allergens, req.Opts)
		if err := s.saveScan(req.User, req.Product, res); err != nil {
			return nil, err
		}
		return res, nil
	}
}

func barcodeEndpoint(s *Service) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*barcodeReq)
		p, ok := s.Registry.Products().Lookup(req.Code)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, req.Code)
		}
		res := s.detector().Detect(p.Ingredients, req.Allergens, req.Opts)
		if err := s.saveScan(req.User, p.Name, res); err != nil {
			return nil, err
		}
		return &barcodeResponse{Product: p, Result: res}, nil
	}
}

func listAllergensEndpoint(s *Service) kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		cat := s.Registry.Allergens()
		infos := make([]allergenInfo, 0, cat.Len())
		for _, e := range cat.Entries() {
			infos = append(infos, allergenInfo{
				Key:      e.Key,
				Display:  cat.DisplayName(e.Key),
				Synonyms: len(e.Synonyms),
			})
		}
		return allergensResponse{Allergens: infos, Catalogs: s.Registry.ListCatalogs()}, nil
	}
}

func addFeedbackEndpoint(s *Service) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		if s.History == nil {
			return nil, errors.New("feedback store disabled")
		}
		fb := request.(*history.Feedback)
		if fb.Product == "" || fb.Reaction == "" {
			return nil, errors.New("product and reaction are required")
		}
		id, err := s.History.AddFeedback(*fb)
		if err != nil {
			return nil, err
		}
		return map[string]int64{"id": id}, nil
	}
}

func listFeedbackEndpoint(s *Service) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		if s.History == nil {
			return nil, errors.New("feedback store disabled")
		}
		req := request.(*feedbackListReq)
		items, err := s.History.ListFeedback(req.Product, req.Limit)
		if err != nil {
			return nil, err
		}
		top, err := s.History.TopProducts(10)
		if err != nil {
			return nil, err
		}
		return feedbackResponse{Items: items, Top: top}, nil
	}
}

func listHistoryEndpoint(s *Service) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		if s.History == nil {
			return nil, errors.New("history store disabled")
		}
		req := request.(*historyReq)
		scans, err := s.History.ListScans(req.User, req.Limit)
		if err != nil {
			return nil, err
		}
		return historyResponse{Scans: scans}, nil
	}
}

// saveScan persists a scan when a history store is attached and the
// caller identified themselves. Anonymous scans are not recorded.
func (s *Service) saveScan(user, product string, res *detect.ScanResult) error {
	if s.History == nil || user == "" {
		return nil
	}
	detected := make([]string, 0, len(res.Allergens))
	for _, a := range res.Allergens {
		detected = append(detected, a.Allergen)
	}
	_, err := s.History.SaveScan(history.Scan{
		User:        user,
		Product:     product,
		Ingredients: res.RawText,
		Detected:    detected,
	})
	if err != nil {
		return fmt.Errorf("save scan: %w", err)
	}
	return nil
}
