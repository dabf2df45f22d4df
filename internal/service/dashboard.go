package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/UnknownOlympus/compass/internal/metrics"
	"github.com/UnknownOlympus/compass/internal/models"
	"github.com/UnknownOlympus/compass/internal/resolver"
	"github.com/UnknownOlympus/compass/internal/zones"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	collectionTickets   = "tickets"
	collectionShipments = "shipments"
)

// Resolver resolves a batch of addresses.
type Resolver interface {
	ResolveAll(ctx context.Context, addresses []string) resolver.Result
}

// ZoneIndex assigns coordinates to sectors.
type ZoneIndex interface {
	Classify(coords *models.Coordinates) string
	Summarize(assignments []string) []zones.ZoneCount
}

// Reconciler derives canonical ticket statuses.
type Reconciler interface {
	Reconcile(ctx context.Context, tickets []models.TicketRecord) []models.TicketRecord
}

// Publisher forwards resolved tickets downstream.
type Publisher interface {
	PublishTickets(ctx context.Context, tickets []models.ResolvedTicket) error
}

// DashboardService enriches every snapshot with coordinates, sectors and
// reconciled statuses, and keeps the latest enriched view for the API.
type DashboardService struct {
	log        *slog.Logger     // Logger for service activities
	resolver   Resolver         // Address resolution with caching and dedup
	zones      ZoneIndex        // Sector assignment
	reconciler Reconciler       // Ticket status normalisation
	publisher  Publisher        // Downstream feed of resolved tickets
	metrics    *metrics.Metrics // Metrics for tracking service activity
	clock      clockwork.Clock  // Time source for view timestamps

	mu    sync.RWMutex
	views map[string]*view
}

// view is the latest enriched snapshot of one collection.
type view struct {
	seq       uint64 // snapshot sequence number within the collection
	tickets   []models.ResolvedTicket
	shipments []models.ResolvedShipment
	sectors   []zones.ZoneCount
	warnings  []resolver.Warning
	locations map[string]models.Location // by trimmed address, from the last resolved snapshot
	updatedAt time.Time
}

// batch is a snapshot accepted for display and waiting for geocoding.
type batch[T any] struct {
	seq     uint64
	records []T
}

// NewDashboardService creates a DashboardService.
func NewDashboardService(
	log *slog.Logger,
	resolver Resolver,
	zones ZoneIndex,
	reconciler Reconciler,
	publisher Publisher,
	metrics *metrics.Metrics,
	clock clockwork.Clock,
) *DashboardService {
	return &DashboardService{
		log:        log,
		resolver:   resolver,
		zones:      zones,
		reconciler: reconciler,
		publisher:  publisher,
		metrics:    metrics,
		clock:      clock,
		views:      make(map[string]*view),
	}
}

// Run consumes both snapshot streams until ctx is done or both streams are closed.
// Each collection is handled on its own goroutine so that geocoding one never
// delays the other.
func (ds *DashboardService) Run(
	ctx context.Context,
	tickets <-chan []models.TicketRecord,
	shipments <-chan []models.ShipmentRecord,
) {
	ds.log.InfoContext(ctx, "Dashboard service started...")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		consume(ctx, tickets, ds.prepareTickets, ds.resolveTickets)
	}()
	go func() {
		defer wg.Done()
		consume(ctx, shipments, ds.prepareShipments, ds.resolveShipments)
	}()
	wg.Wait()

	ds.log.InfoContext(ctx, "Dashboard service stopped.")
}

// consume runs prepare on every snapshot as soon as it arrives and resolve on
// the latest prepared one. At most one resolve runs at a time; snapshots that
// arrive meanwhile are prepared immediately and only the newest is resolved next.
func consume[T, P any](
	ctx context.Context,
	snapshots <-chan T,
	prepare func(context.Context, T) P,
	resolve func(context.Context, P),
) {
	var (
		busy       bool
		pending    P
		hasPending bool
		done       = make(chan struct{}, 1)
	)

	start := func(prepared P) {
		busy = true
		go func() {
			resolve(ctx, prepared)
			done <- struct{}{}
		}()
	}

	for snapshots != nil || busy {
		select {
		case <-ctx.Done():
			if busy {
				<-done
			}
			return
		case snapshot, ok := <-snapshots:
			if !ok {
				snapshots = nil
				continue
			}
			prepared := prepare(ctx, snapshot)
			if busy {
				pending, hasPending = prepared, true
				continue
			}
			start(prepared)
		case <-done:
			busy = false
			if hasPending {
				hasPending = false
				start(pending)
			}
		}
	}
}

// HandleTickets processes one ticket snapshot synchronously: statuses are
// reconciled and shown first, then tickets are located and published.
func (ds *DashboardService) HandleTickets(ctx context.Context, records []models.TicketRecord) {
	ds.resolveTickets(ctx, ds.prepareTickets(ctx, records))
}

// HandleShipments processes one shipment snapshot synchronously.
func (ds *DashboardService) HandleShipments(ctx context.Context, records []models.ShipmentRecord) {
	ds.resolveShipments(ctx, ds.prepareShipments(ctx, records))
}

// prepareTickets reconciles statuses and publishes a view that does not wait
// for geocoding. Addresses seen in the last resolved snapshot keep their location.
func (ds *DashboardService) prepareTickets(
	ctx context.Context,
	records []models.TicketRecord,
) batch[models.TicketRecord] {
	reconciled := ds.reconciler.Reconcile(ctx, records)

	ds.mu.Lock()
	defer ds.mu.Unlock()

	previous := ds.current(collectionTickets)
	resolved := make([]models.ResolvedTicket, len(reconciled))
	assignments := make([]string, len(reconciled))
	for i, ticket := range reconciled {
		resolved[i] = models.ResolvedTicket{TicketRecord: ticket, Location: ds.provisional(previous, ticket.Address)}
		assignments[i] = resolved[i].Zone
	}

	seq := previous.seq + 1
	ds.views[collectionTickets] = &view{
		seq:       seq,
		tickets:   resolved,
		sectors:   ds.zones.Summarize(assignments),
		warnings:  previous.warnings,
		locations: previous.locations,
		updatedAt: ds.clock.Now(),
	}

	return batch[models.TicketRecord]{seq: seq, records: reconciled}
}

// resolveTickets locates a prepared snapshot. The result is dropped when a
// newer snapshot has been prepared in the meantime.
func (ds *DashboardService) resolveTickets(ctx context.Context, b batch[models.TicketRecord]) {
	addresses := make([]string, len(b.records))
	for i, ticket := range b.records {
		addresses[i] = ticket.Address
	}
	result := ds.resolver.ResolveAll(ctx, addresses)

	resolved := make([]models.ResolvedTicket, len(b.records))
	assignments := make([]string, len(b.records))
	locations := make(map[string]models.Location, len(b.records))
	for i, ticket := range b.records {
		resolved[i] = models.ResolvedTicket{TicketRecord: ticket, Location: ds.locate(result, ticket.Address)}
		assignments[i] = resolved[i].Zone
		remember(locations, ticket.Address, resolved[i].Location)
	}

	sectors := ds.zones.Summarize(assignments)
	v := &view{
		seq:       b.seq,
		tickets:   resolved,
		sectors:   sectors,
		warnings:  result.Warnings,
		locations: locations,
	}
	if !ds.replace(collectionTickets, v) {
		ds.log.DebugContext(ctx, "Newer ticket snapshot pending, resolved view dropped", "seq", b.seq)
		return
	}
	ds.recordSectors(collectionTickets, sectors)

	if err := ds.publisher.PublishTickets(ctx, resolved); err != nil {
		ds.log.ErrorContext(ctx, "Failed to publish resolved tickets", "error", err)
	}

	ds.log.InfoContext(ctx, "Ticket snapshot processed", "tickets", len(resolved), "warnings", len(result.Warnings))
}

// prepareShipments shows the shipments right away. Shipment statuses are not reconciled.
func (ds *DashboardService) prepareShipments(
	_ context.Context,
	records []models.ShipmentRecord,
) batch[models.ShipmentRecord] {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	previous := ds.current(collectionShipments)
	resolved := make([]models.ResolvedShipment, len(records))
	assignments := make([]string, len(records))
	for i, shipment := range records {
		resolved[i] = models.ResolvedShipment{ShipmentRecord: shipment, Location: ds.provisional(previous, shipment.Address)}
		assignments[i] = resolved[i].Zone
	}

	seq := previous.seq + 1
	ds.views[collectionShipments] = &view{
		seq:       seq,
		shipments: resolved,
		sectors:   ds.zones.Summarize(assignments),
		warnings:  previous.warnings,
		locations: previous.locations,
		updatedAt: ds.clock.Now(),
	}

	return batch[models.ShipmentRecord]{seq: seq, records: records}
}

func (ds *DashboardService) resolveShipments(ctx context.Context, b batch[models.ShipmentRecord]) {
	addresses := make([]string, len(b.records))
	for i, shipment := range b.records {
		addresses[i] = shipment.Address
	}
	result := ds.resolver.ResolveAll(ctx, addresses)

	resolved := make([]models.ResolvedShipment, len(b.records))
	assignments := make([]string, len(b.records))
	locations := make(map[string]models.Location, len(b.records))
	for i, shipment := range b.records {
		resolved[i] = models.ResolvedShipment{ShipmentRecord: shipment, Location: ds.locate(result, shipment.Address)}
		assignments[i] = resolved[i].Zone
		remember(locations, shipment.Address, resolved[i].Location)
	}

	sectors := ds.zones.Summarize(assignments)
	v := &view{
		seq:       b.seq,
		shipments: resolved,
		sectors:   sectors,
		warnings:  result.Warnings,
		locations: locations,
	}
	if !ds.replace(collectionShipments, v) {
		ds.log.DebugContext(ctx, "Newer shipment snapshot pending, resolved view dropped", "seq", b.seq)
		return
	}
	ds.recordSectors(collectionShipments, sectors)

	ds.log.InfoContext(ctx, "Shipment snapshot processed", "shipments", len(resolved), "warnings", len(result.Warnings))
}

// provisional is the location shown before a snapshot is geocoded.
func (ds *DashboardService) provisional(previous *view, address string) models.Location {
	key := models.NormalizeAddress(address)
	if key == "" {
		return models.Location{Zone: ds.zones.Classify(nil), State: models.LocationNoAddress}
	}
	if location, ok := previous.locations[key]; ok {
		return location
	}
	return models.Location{Zone: ds.zones.Classify(nil), State: models.LocationNotLocated}
}

func remember(locations map[string]models.Location, address string, location models.Location) {
	if key := models.NormalizeAddress(address); key != "" {
		locations[key] = location
	}
}

// locate builds the Location of a record. Records are never dropped for lack of coordinates.
func (ds *DashboardService) locate(result resolver.Result, address string) models.Location {
	coords, ok := result.Lookup(address)
	location := models.Location{Coordinates: coords, Zone: ds.zones.Classify(coords)}

	switch {
	case !ok:
		location.State = models.LocationNoAddress
	case coords == nil:
		location.State = models.LocationNotLocated
	default:
		location.State = models.LocationLocated
	}

	return location
}

// replace installs a resolved view unless a newer snapshot was prepared since.
func (ds *DashboardService) replace(collection string, v *view) bool {
	v.updatedAt = ds.clock.Now()

	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.current(collection).seq > v.seq {
		return false
	}
	ds.views[collection] = v
	return true
}

// current returns the view of collection. The caller holds ds.mu.
func (ds *DashboardService) current(collection string) *view {
	if v, ok := ds.views[collection]; ok {
		return v
	}
	return &view{}
}

func (ds *DashboardService) recordSectors(collection string, sectors []zones.ZoneCount) {
	ds.metrics.ZoneAssignments.DeletePartialMatch(prometheus.Labels{"collection": collection})
	for _, sector := range sectors {
		ds.metrics.ZoneAssignments.WithLabelValues(collection, sector.Zone).Set(float64(sector.Count))
	}
}

func (ds *DashboardService) load(collection string) *view {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	return ds.current(collection)
}

// Tickets returns the latest resolved tickets and the warnings raised while resolving them.
func (ds *DashboardService) Tickets() ([]models.ResolvedTicket, []resolver.Warning) {
	v := ds.load(collectionTickets)
	return v.tickets, v.warnings
}

// Shipments returns the latest resolved shipments and their warnings.
func (ds *DashboardService) Shipments() ([]models.ResolvedShipment, []resolver.Warning) {
	v := ds.load(collectionShipments)
	return v.shipments, v.warnings
}

// Sectors returns per-zone counts of the latest ticket and shipment snapshots.
func (ds *DashboardService) Sectors() SectorReport {
	tickets, shipments := ds.load(collectionTickets), ds.load(collectionShipments)

	return SectorReport{
		Tickets:   tickets.sectors,
		Shipments: shipments.sectors,
		Warnings:  MergeWarnings(tickets.warnings, shipments.warnings),
		UpdatedAt: latest(tickets.updatedAt, shipments.updatedAt),
	}
}

// SectorReport is the sector summary of both collections.
type SectorReport struct {
	Tickets   []zones.ZoneCount  `json:"tickets"`
	Shipments []zones.ZoneCount  `json:"shipments"`
	Warnings  []resolver.Warning `json:"warnings"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// MergeWarnings combines warning lists, keeping one warning per kind.
func MergeWarnings(lists ...[]resolver.Warning) []resolver.Warning {
	var out []resolver.Warning
	index := make(map[resolver.WarningKind]int)

	for _, list := range lists {
		for _, warning := range list {
			if i, ok := index[warning.Kind]; ok {
				out[i].Addresses += warning.Addresses
				continue
			}
			index[warning.Kind] = len(out)
			out = append(out, warning)
		}
	}

	return out
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
