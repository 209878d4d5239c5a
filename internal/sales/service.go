package sales

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/bookexpress/cotizador/internal/aggregate"
	"github.com/bookexpress/cotizador/internal/catalog"
	"github.com/bookexpress/cotizador/internal/masterdata"
	"github.com/bookexpress/cotizador/internal/pricing"
	"github.com/bookexpress/cotizador/internal/shared"
)

// CatalogPort resolves the products referenced by quotation lines.
type CatalogPort interface {
	ProductsByIDs(ctx context.Context, ids []int64) (map[int64]catalog.Product, error)
}

// DirectoryPort resolves institutions and advisors.
type DirectoryPort interface {
	GetInstitution(ctx context.Context, id int64) (masterdata.Institution, error)
	GetAdvisor(ctx context.Context, id int64) (masterdata.Advisor, error)
}

// AuditPort records business events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service provides business logic for quotations, adoptions and purchase orders.
type Service struct {
	repo      RepositoryPort
	catalog   CatalogPort
	directory DirectoryPort
	engine    *aggregate.Engine
	audit     AuditPort
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewService constructs a sales service.
func NewService(
	repo RepositoryPort,
	catalog CatalogPort,
	directory DirectoryPort,
	engine *aggregate.Engine,
	audit AuditPort,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if engine == nil {
		engine = aggregate.NewEngine(nil, logger)
	}
	return &Service{
		repo:      repo,
		catalog:   catalog,
		directory: directory,
		engine:    engine,
		audit:     audit,
		validate:  validator.New(),
		logger:    logger,
	}
}

func (s *Service) record(ctx context.Context, action, entity string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: entity, EntityID: id, Meta: meta}); err != nil {
		s.logger.WarnContext(ctx, "audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

// ============================================================================
// QUOTATION OPERATIONS
// ============================================================================

// CreateQuotation prices every line, numbers the quotation and stores it with its total.
func (s *Service) CreateQuotation(ctx context.Context, req CreateQuotationRequest) (Quotation, error) {
	if err := s.validate.Struct(req); err != nil {
		return Quotation{}, err
	}
	saleType, err := headerSaleType(req.SaleType)
	if err != nil {
		return Quotation{}, err
	}
	if _, err := s.directory.GetInstitution(ctx, req.InstitutionID); err != nil {
		return Quotation{}, err
	}
	advisor, err := s.directory.GetAdvisor(ctx, req.AdvisorID)
	if err != nil {
		return Quotation{}, err
	}
	if advisor.Status == masterdata.AdvisorInactive {
		return Quotation{}, fmt.Errorf("%w: %w", shared.ErrInvalidInput, masterdata.ErrAdvisorInactive)
	}
	lines, err := s.priceLines(ctx, saleType, req.Lines)
	if err != nil {
		return Quotation{}, err
	}

	header := Quotation{
		InstitutionID: req.InstitutionID,
		AdvisorID:     req.AdvisorID,
		SaleType:      saleType,
		Status:        QuotationPending,
		Notes:         strings.TrimSpace(req.Notes),
	}
	var created Quotation
	for attempt := 1; ; attempt++ {
		err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			q, err := tx.InsertQuotation(ctx, header)
			if err != nil {
				return fmt.Errorf("insert quotation: %w", err)
			}
			if q.Number, err = AssignQuotationNumber(ctx, tx, q.ID); err != nil {
				return err
			}
			if err := insertQuotationLines(ctx, tx, q.ID, lines); err != nil {
				return err
			}
			if _, err := s.engine.RecomputeQuotationTotal(ctx, tx, q.ID); err != nil {
				return err
			}
			created = q
			return nil
		})
		if err == nil {
			break
		}
		if !shared.IsUniqueViolation(err, quotationNumberKey) {
			return Quotation{}, fmt.Errorf("create quotation: %w", err)
		}
		if attempt >= maxNumberingRetries {
			return Quotation{}, fmt.Errorf("%w: %w", ErrNumberExhausted, err)
		}
		s.logger.WarnContext(ctx, "quotation number collision, retrying", slog.Int("attempt", attempt))
	}

	s.record(ctx, "quotation.created", "quotation", created.ID, map[string]any{
		"number":    created.Number,
		"sale_type": string(saleType),
		"lines":     len(lines),
	})
	return s.repo.GetQuotation(ctx, created.ID)
}

// GetQuotation returns a quotation with its lines.
func (s *Service) GetQuotation(ctx context.Context, id int64) (Quotation, error) {
	return s.repo.GetQuotation(ctx, id)
}

// ListQuotations returns a filtered page of quotations.
func (s *Service) ListQuotations(ctx context.Context, filter QuotationFilter) ([]Quotation, int, error) {
	return s.repo.ListQuotations(ctx, filter)
}

// ReplaceQuotationLines swaps every line and recomputes the total in one transaction.
func (s *Service) ReplaceQuotationLines(ctx context.Context, id int64, req ReplaceLinesRequest) (Quotation, error) {
	if err := s.validate.Struct(req); err != nil {
		return Quotation{}, err
	}
	current, err := s.repo.GetQuotation(ctx, id)
	if err != nil {
		return Quotation{}, err
	}
	lines, err := s.priceLines(ctx, current.SaleType, req.Lines)
	if err != nil {
		return Quotation{}, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		q, err := tx.LockQuotation(ctx, id)
		if err != nil {
			return err
		}
		if !q.Status.Editable() {
			return fmt.Errorf("%w: quotation %s is %s", ErrInvalidTransition, q.Number, q.Status)
		}
		if err := tx.DeleteQuotationLines(ctx, id); err != nil {
			return err
		}
		if err := insertQuotationLines(ctx, tx, id, lines); err != nil {
			return err
		}
		_, err = s.engine.RecomputeQuotationTotal(ctx, tx, id)
		return err
	})
	if err != nil {
		return Quotation{}, fmt.Errorf("replace quotation lines: %w", err)
	}
	s.record(ctx, "quotation.lines_replaced", "quotation", id, map[string]any{"lines": len(lines)})
	return s.repo.GetQuotation(ctx, id)
}

// ChangeQuotationStatus applies a lifecycle transition. Approving with
// AutoAdopt also creates an adoption with zero quantities.
func (s *Service) ChangeQuotationStatus(ctx context.Context, id int64, req ChangeStatusRequest) (Quotation, error) {
	if err := s.validate.Struct(req); err != nil {
		return Quotation{}, err
	}
	reason := strings.TrimSpace(req.Reason)
	if req.Status == QuotationRejected && reason == "" {
		return Quotation{}, fmt.Errorf("%w: rejection reason is required", shared.ErrInvalidInput)
	}
	var adoptionID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		q, err := tx.LockQuotation(ctx, id)
		if err != nil {
			return err
		}
		if !q.Status.CanTransition(req.Status) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, q.Status, req.Status)
		}
		if req.Status != QuotationRejected {
			reason = ""
		}
		if err := tx.UpdateQuotationStatus(ctx, id, req.Status, reason); err != nil {
			return err
		}
		q.Status = req.Status
		if req.Status == QuotationApproved && req.AutoAdopt {
			a, err := s.adopt(ctx, tx, q, CreateAdoptionRequest{QuotationID: id})
			if err != nil {
				return err
			}
			adoptionID = a.ID
		}
		return nil
	})
	if err != nil {
		return Quotation{}, fmt.Errorf("change quotation status: %w", err)
	}
	meta := map[string]any{"status": string(req.Status)}
	if reason != "" {
		meta["reason"] = reason
	}
	s.record(ctx, "quotation.status_changed", "quotation", id, meta)
	if adoptionID > 0 {
		s.record(ctx, "adoption.created", "adoption", adoptionID, map[string]any{"quotation_id": id, "auto": true})
	}
	return s.repo.GetQuotation(ctx, id)
}

// RecomputeQuotationTotal re-derives a stored quotation total.
func (s *Service) RecomputeQuotationTotal(ctx context.Context, id int64) (aggregate.Outcome, error) {
	var out aggregate.Outcome
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		out, err = s.engine.RecomputeQuotationTotal(ctx, tx, id)
		return err
	})
	return out, err
}

func headerSaleType(tag string) (pricing.SaleType, error) {
	if strings.TrimSpace(tag) == "" {
		return pricing.SaleTypeDirectFair, nil
	}
	return pricing.ParseSaleType(tag)
}

// priceLines resolves catalog defaults and computes the derived fields of every line.
func (s *Service) priceLines(ctx context.Context, fallback pricing.SaleType, reqs []QuotationLineRequest) ([]QuotationLine, error) {
	ids := make([]int64, 0, len(reqs))
	for _, r := range reqs {
		ids = append(ids, r.ProductID)
	}
	products, err := s.catalog.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	lines := make([]QuotationLine, 0, len(reqs))
	for i, r := range reqs {
		product, ok := products[r.ProductID]
		if !ok {
			return nil, fmt.Errorf("line %d: %w: id %d", i+1, catalog.ErrProductNotFound, r.ProductID)
		}
		line, err := PriceLine(fallback, r, product)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// PriceLine computes one quotation line. Base price defaults to the product
// list price and never goes below it; provider discount defaults to the product's.
func PriceLine(fallback pricing.SaleType, req QuotationLineRequest, product catalog.Product) (QuotationLine, error) {
	saleType := fallback
	if strings.TrimSpace(req.SaleType) != "" {
		st, err := pricing.ParseSaleType(req.SaleType)
		if err != nil {
			return QuotationLine{}, err
		}
		saleType = st
	}
	raw := pricing.WithDefaults(req.RawInputs, pricing.ProductDefaults{
		ListPrice:        product.ListPrice,
		ProviderDiscount: product.ProviderDiscount,
	})
	inputs, err := pricing.Normalize(saleType, raw)
	if err != nil {
		return QuotationLine{}, err
	}
	if inputs.BasePrice.LessThan(product.ListPrice) {
		inputs.BasePrice = pricing.Round2(product.ListPrice)
	}
	derived, err := pricing.ComputeNormalized(saleType, inputs)
	if err != nil {
		return QuotationLine{}, err
	}
	return QuotationLine{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    req.Quantity,
		Inputs:      inputs,
		Derived:     derived,
	}, nil
}

func insertQuotationLines(ctx context.Context, tx TxRepository, quotationID int64, lines []QuotationLine) error {
	for i := range lines {
		line := lines[i]
		line.QuotationID = quotationID
		if _, err := tx.InsertQuotationLine(ctx, line); err != nil {
			return fmt.Errorf("insert quotation line %d: %w", i+1, err)
		}
	}
	return nil
}

// ============================================================================
// ADOPTION OPERATIONS
// ============================================================================

// CreateAdoption adopts an approved quotation and marks it ADOPTED.
func (s *Service) CreateAdoption(ctx context.Context, req CreateAdoptionRequest) (Adoption, error) {
	if err := s.validate.Struct(req); err != nil {
		return Adoption{}, err
	}
	var created Adoption
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		q, err := tx.LockQuotation(ctx, req.QuotationID)
		if err != nil {
			return err
		}
		if q.Status != QuotationApproved && q.Status != QuotationAdopted {
			return fmt.Errorf("%w: quotation %s is %s, not approved", ErrInvalidTransition, q.Number, q.Status)
		}
		created, err = s.adopt(ctx, tx, q, req)
		return err
	})
	if err != nil {
		return Adoption{}, fmt.Errorf("create adoption: %w", err)
	}
	s.record(ctx, "adoption.created", "adoption", created.ID, map[string]any{"quotation_id": req.QuotationID})
	return s.repo.GetAdoption(ctx, created.ID)
}

func (s *Service) adopt(ctx context.Context, tx TxRepository, q Quotation, req CreateAdoptionRequest) (Adoption, error) {
	quotationLines, err := tx.QuotationLines(ctx, q.ID)
	if err != nil {
		return Adoption{}, err
	}
	var lines []AdoptionLine
	if len(req.Items) == 0 {
		for _, ql := range quotationLines {
			lines = append(lines, AdoptionLine{QuotationLineID: ql.ID, ProductID: ql.ProductID})
		}
	} else if lines, err = adoptionLinesFromItems(quotationLines, req.Items); err != nil {
		return Adoption{}, err
	}

	a, err := tx.InsertAdoption(ctx, Adoption{
		QuotationID:    q.ID,
		Modality:       strings.TrimSpace(req.Modality),
		Notes:          strings.TrimSpace(req.Notes),
		DirectorSigned: req.DirectorSigned,
		AdvisorSigned:  req.AdvisorSigned,
	})
	if err != nil {
		return Adoption{}, err
	}
	if err := insertAdoptionLines(ctx, tx, a.ID, lines); err != nil {
		return Adoption{}, err
	}
	outcome, err := s.engine.RecomputeAdoptionQuantity(ctx, tx, a.ID)
	if err != nil {
		return Adoption{}, err
	}
	a.TotalQuantity = outcome.Value
	if q.Status != QuotationAdopted {
		if err := tx.UpdateQuotationStatus(ctx, q.ID, QuotationAdopted, ""); err != nil {
			return Adoption{}, err
		}
	}
	return a, nil
}

func adoptionLinesFromItems(quotationLines []QuotationLine, items []AdoptionItemRequest) ([]AdoptionLine, error) {
	byID := make(map[int64]QuotationLine, len(quotationLines))
	for _, ql := range quotationLines {
		byID[ql.ID] = ql
	}
	lines := make([]AdoptionLine, 0, len(items))
	for i, item := range items {
		ql, ok := byID[item.QuotationLineID]
		if !ok {
			return nil, fmt.Errorf("%w: item %d references quotation line %d outside this quotation", shared.ErrInvalidInput, i+1, item.QuotationLineID)
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item %d quantity must be positive", shared.ErrInvalidInput, i+1)
		}
		month, err := ParseReadingMonth(item.ReadingMonth)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		lines = append(lines, AdoptionLine{
			QuotationLineID: ql.ID,
			ProductID:       ql.ProductID,
			Quantity:        item.Quantity,
			ReadingMonth:    month,
		})
	}
	return lines, nil
}

func insertAdoptionLines(ctx context.Context, tx TxRepository, adoptionID int64, lines []AdoptionLine) error {
	for i := range lines {
		line := lines[i]
		line.AdoptionID = adoptionID
		if _, err := tx.InsertAdoptionLine(ctx, line); err != nil {
			return fmt.Errorf("insert adoption line %d: %w", i+1, err)
		}
	}
	return nil
}

// GetAdoption returns an adoption with its lines.
func (s *Service) GetAdoption(ctx context.Context, id int64) (Adoption, error) {
	return s.repo.GetAdoption(ctx, id)
}

// ListAdoptions returns a page of adoptions.
func (s *Service) ListAdoptions(ctx context.Context, filter AdoptionFilter) ([]Adoption, int, error) {
	return s.repo.ListAdoptions(ctx, filter)
}

// ReplaceAdoptionLines swaps every adoption line and recomputes the adopted quantity.
func (s *Service) ReplaceAdoptionLines(ctx context.Context, id int64, req ReplaceAdoptionLinesRequest) (Adoption, error) {
	if err := s.validate.Struct(req); err != nil {
		return Adoption{}, err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		a, err := tx.LockAdoption(ctx, id)
		if err != nil {
			return err
		}
		quotationLines, err := tx.QuotationLines(ctx, a.QuotationID)
		if err != nil {
			return err
		}
		lines, err := adoptionLinesFromItems(quotationLines, req.Items)
		if err != nil {
			return err
		}
		if err := tx.DeleteAdoptionLines(ctx, id); err != nil {
			return err
		}
		if err := insertAdoptionLines(ctx, tx, id, lines); err != nil {
			return err
		}
		_, err = s.engine.RecomputeAdoptionQuantity(ctx, tx, id)
		return err
	})
	if err != nil {
		return Adoption{}, fmt.Errorf("replace adoption lines: %w", err)
	}
	s.record(ctx, "adoption.lines_replaced", "adoption", id, map[string]any{"lines": len(req.Items)})
	return s.repo.GetAdoption(ctx, id)
}

// RecomputeAdoptionQuantity re-derives a stored adopted quantity.
func (s *Service) RecomputeAdoptionQuantity(ctx context.Context, id int64) (aggregate.QuantityOutcome, error) {
	var out aggregate.QuantityOutcome
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		out, err = s.engine.RecomputeAdoptionQuantity(ctx, tx, id)
		return err
	})
	return out, err
}

// ============================================================================
// PURCHASE ORDER OPERATIONS
// ============================================================================

// CreatePurchaseOrder turns adopted quantities into supplier order lines,
// snapshotting the provider price quoted for each product.
func (s *Service) CreatePurchaseOrder(ctx context.Context, req CreateOrderRequest) (PurchaseOrder, error) {
	if err := s.validate.Struct(req); err != nil {
		return PurchaseOrder{}, err
	}
	var created PurchaseOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		a, err := tx.LockAdoption(ctx, req.AdoptionID)
		if err != nil {
			return err
		}
		adopted, err := tx.AdoptionLines(ctx, a.ID)
		if err != nil {
			return err
		}
		quotationLines, err := tx.QuotationLines(ctx, a.QuotationID)
		if err != nil {
			return err
		}
		lines, err := s.orderLines(ctx, adopted, quotationLines)
		if err != nil {
			return err
		}
		o, err := tx.InsertPurchaseOrder(ctx, PurchaseOrder{
			AdoptionID: a.ID,
			Supplier:   strings.TrimSpace(req.Supplier),
			Notes:      strings.TrimSpace(req.Notes),
			Status:     OrderDraft,
		})
		if err != nil {
			return err
		}
		for i := range lines {
			lines[i].OrderID = o.ID
			if _, err := tx.InsertOrderLine(ctx, lines[i]); err != nil {
				return fmt.Errorf("insert order line %d: %w", i+1, err)
			}
		}
		outcome, err := s.engine.RecomputeOrderTotal(ctx, tx, o.ID)
		if err != nil {
			return err
		}
		o.TotalCost = outcome.Value
		created = o
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, fmt.Errorf("create purchase order: %w", err)
	}
	s.record(ctx, "purchase_order.created", "purchase_order", created.ID, map[string]any{
		"adoption_id": req.AdoptionID,
		"total_cost":  created.TotalCost.StringFixed(2),
	})
	return s.repo.GetPurchaseOrder(ctx, created.ID)
}

func (s *Service) orderLines(ctx context.Context, adopted []AdoptionLine, quotationLines []QuotationLine) ([]OrderLine, error) {
	quoted := make(map[int64]QuotationLine, len(quotationLines))
	quotedByProduct := make(map[int64]QuotationLine, len(quotationLines))
	for _, ql := range quotationLines {
		quoted[ql.ID] = ql
		if _, seen := quotedByProduct[ql.ProductID]; !seen {
			quotedByProduct[ql.ProductID] = ql
		}
	}

	var (
		lines    []OrderLine
		missing  []int64
		fallback []int
	)
	for _, al := range adopted {
		if al.Quantity <= 0 {
			continue
		}
		line := OrderLine{ProductID: al.ProductID, ProductName: al.ProductName, Quantity: al.Quantity}
		ql, ok := quoted[al.QuotationLineID]
		if !ok {
			ql, ok = quotedByProduct[al.ProductID]
		}
		if ok {
			line.ProviderPrice = ql.Derived.ProviderPrice
		} else {
			missing = append(missing, al.ProductID)
			fallback = append(fallback, len(lines))
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: adoption has no adopted quantities", shared.ErrInvalidInput)
	}
	if len(missing) == 0 {
		return lines, nil
	}

	products, err := s.catalog.ProductsByIDs(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	for _, i := range fallback {
		p, ok := products[lines[i].ProductID]
		if !ok {
			return nil, fmt.Errorf("order line %d: %w: id %d", i+1, catalog.ErrProductNotFound, lines[i].ProductID)
		}
		lines[i].ProviderPrice = p.ProviderPrice
	}
	return lines, nil
}

// GetPurchaseOrder returns an order with its lines.
func (s *Service) GetPurchaseOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	return s.repo.GetPurchaseOrder(ctx, id)
}

// ListPurchaseOrders returns a page of orders.
func (s *Service) ListPurchaseOrders(ctx context.Context, filter OrderFilter) ([]PurchaseOrder, int, error) {
	return s.repo.ListPurchaseOrders(ctx, filter)
}

// ChangeOrderStatus applies a purchase order lifecycle transition.
func (s *Service) ChangeOrderStatus(ctx context.Context, id int64, req ChangeOrderStatusRequest) (PurchaseOrder, error) {
	if err := s.validate.Struct(req); err != nil {
		return PurchaseOrder{}, err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		o, err := tx.LockPurchaseOrder(ctx, id)
		if err != nil {
			return err
		}
		if !o.Status.CanTransition(req.Status) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, o.Status, req.Status)
		}
		return tx.UpdateOrderStatus(ctx, id, req.Status)
	})
	if err != nil {
		return PurchaseOrder{}, fmt.Errorf("change order status: %w", err)
	}
	s.record(ctx, "purchase_order.status_changed", "purchase_order", id, map[string]any{"status": string(req.Status)})
	return s.repo.GetPurchaseOrder(ctx, id)
}

// RecomputeOrderTotal re-derives a stored order total cost.
func (s *Service) RecomputeOrderTotal(ctx context.Context, id int64) (aggregate.Outcome, error) {
	var out aggregate.Outcome
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		out, err = s.engine.RecomputeOrderTotal(ctx, tx, id)
		return err
	})
	return out, err
}
