package admission

import "lexgate/backend/internal/platform/rbac"

// Operation is the admission policy of one gRPC method.
type Operation struct {
	Name       string
	Permission rbac.Permission
	// Mode applies when the request targets a stored record (rbac.ResourceScoped).
	Mode rbac.AccessMode
	// CapabilityLimited operations draw from the process-wide token bucket.
	CapabilityLimited bool
	// TrialService names the trial quota the operation consumes; empty for ungated operations.
	TrialService string
}

// Catalog maps gRPC full method names to operations. Methods absent from the catalog require only an
// authenticated, consistent session; public methods skip admission entirely.
type Catalog struct {
	ops    map[string]Operation
	public map[string]bool
}

// NewCatalog returns a catalog over copies of ops and public.
func NewCatalog(ops map[string]Operation, public []string) *Catalog {
	c := &Catalog{
		ops:    make(map[string]Operation, len(ops)),
		public: make(map[string]bool, len(public)),
	}
	for m, op := range ops {
		c.ops[m] = op
	}
	for _, m := range public {
		c.public[m] = true
	}
	return c
}

// Lookup returns the operation for method.
func (c *Catalog) Lookup(method string) (Operation, bool) {
	op, ok := c.ops[method]
	return op, ok
}

// IsPublic reports whether method bypasses authentication and admission.
func (c *Catalog) IsPublic(method string) bool {
	return c.public[method]
}

// PublicMethods returns the public method set in the form the auth interceptor takes.
func (c *Catalog) PublicMethods() map[string]bool {
	out := make(map[string]bool, len(c.public))
	for m := range c.public {
		out[m] = true
	}
	return out
}

// Trial services.
const (
	ServiceDocumentGeneration = "document_generation"
	ServiceContractReview     = "contract_review"
	ServiceLegalResearch      = "legal_research"
)

// DefaultCatalog returns the operations of the legal workspace API.
func DefaultCatalog() *Catalog {
	const (
		documents = "/lexgate.documents.v1.DocumentService/"
		contracts = "/lexgate.contracts.v1.ContractService/"
		research  = "/lexgate.research.v1.ResearchService/"
		matters   = "/lexgate.matters.v1.MatterService/"
		contacts  = "/lexgate.contacts.v1.ContactService/"
		invoices  = "/lexgate.billing.v1.InvoiceService/"
		members   = "/lexgate.tenancy.v1.MemberService/"
		tenants   = "/lexgate.tenancy.v1.TenantService/"
		audit     = "/lexgate.audit.v1.AuditService/"
	)
	ops := map[string]Operation{
		documents + "GenerateDocument": {Name: "document.generate", Permission: rbac.PermDocumentGenerate, Mode: rbac.ModeWrite, CapabilityLimited: true, TrialService: ServiceDocumentGeneration},
		documents + "GetDocument":      {Name: "document.get", Permission: rbac.PermDocumentRead, Mode: rbac.ModeRead},
		documents + "ListDocuments":    {Name: "document.list", Permission: rbac.PermDocumentRead, Mode: rbac.ModeRead},
		documents + "UpdateDocument":   {Name: "document.update", Permission: rbac.PermDocumentWrite, Mode: rbac.ModeWrite},
		documents + "DeleteDocument":   {Name: "document.delete", Permission: rbac.PermDocumentDelete, Mode: rbac.ModeDelete},

		contracts + "ReviewContract": {Name: "contract.review", Permission: rbac.PermContractReview, Mode: rbac.ModeRead, CapabilityLimited: true, TrialService: ServiceContractReview},
		research + "RunResearch":     {Name: "research.run", Permission: rbac.PermLegalResearch, Mode: rbac.ModeRead, CapabilityLimited: true, TrialService: ServiceLegalResearch},

		matters + "GetMatter":    {Name: "matter.get", Permission: rbac.PermMatterRead, Mode: rbac.ModeRead},
		matters + "ListMatters":  {Name: "matter.list", Permission: rbac.PermMatterRead, Mode: rbac.ModeRead},
		matters + "CreateMatter": {Name: "matter.create", Permission: rbac.PermMatterWrite, Mode: rbac.ModeWrite},
		matters + "UpdateMatter": {Name: "matter.update", Permission: rbac.PermMatterWrite, Mode: rbac.ModeWrite},
		matters + "DeleteMatter": {Name: "matter.delete", Permission: rbac.PermMatterDelete, Mode: rbac.ModeDelete},

		contacts + "GetContact":    {Name: "contact.get", Permission: rbac.PermContactRead, Mode: rbac.ModeRead},
		contacts + "ListContacts":  {Name: "contact.list", Permission: rbac.PermContactRead, Mode: rbac.ModeRead},
		contacts + "UpdateContact": {Name: "contact.update", Permission: rbac.PermContactWrite, Mode: rbac.ModeWrite},
		contacts + "DeleteContact": {Name: "contact.delete", Permission: rbac.PermContactDelete, Mode: rbac.ModeDelete},

		invoices + "GetInvoice":    {Name: "invoice.get", Permission: rbac.PermInvoiceRead, Mode: rbac.ModeRead},
		invoices + "ListInvoices":  {Name: "invoice.list", Permission: rbac.PermInvoiceRead, Mode: rbac.ModeRead},
		invoices + "CreateInvoice": {Name: "invoice.create", Permission: rbac.PermInvoiceWrite, Mode: rbac.ModeWrite},
		invoices + "VoidInvoice":   {Name: "invoice.void", Permission: rbac.PermInvoiceDelete, Mode: rbac.ModeDelete},

		members + "ListMembers":  {Name: "member.list", Permission: rbac.PermMemberRead, Mode: rbac.ModeRead},
		members + "InviteMember": {Name: "member.invite", Permission: rbac.PermMemberWrite, Mode: rbac.ModeWrite},
		members + "RemoveMember": {Name: "member.remove", Permission: rbac.PermMemberDelete, Mode: rbac.ModeDelete},

		tenants + "UpdateSettings": {Name: "tenant.update_settings", Permission: rbac.PermTenantManage, Mode: rbac.ModeWrite},
		audit + "ListAuditLogs":    {Name: "audit.list", Permission: rbac.PermAuditRead, Mode: rbac.ModeRead},
	}
	public := []string{
		"/grpc.health.v1.Health/Check",
		"/grpc.health.v1.Health/Watch",
	}
	return NewCatalog(ops, public)
}
