package services

import (
	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
	"github.com/custodia-labs/leasequery/internal/logger"
)

// Default prompt templates. The file prompt store seeds user-editable
// copies from these; services fall back to them when no store is set.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptClauseExtraction: `You are a legal analyst abstracting a commercial real estate lease.

For each of these clause types, find the clause in the lease and summarise it:
%s

Return a single JSON object of the form:
{"clauses": [{"clause_type": "<one of the types above>", "found": true, "article_reference": "<e.g. Article 3 or Section 5.01, or null>", "summary": "<concise summary with key facts and numbers, max 40 words>", "key_terms": ["<3-5 key values as separate strings, e.g. $25/sqft>", "5 years", "2 options"]}]}

Rules:
- Use only the clause types listed above.
- Include each clause type at most once.
- If a clause type is not present in the lease, omit it or set "found" to false.
- Copy article references exactly as they appear in the lease. Never invent one.

Lease Text:
%s`,

	driven.PromptClauseSingle: `You are a legal analyst abstracting a commercial real estate lease.

Find the %s clause in the lease below. Relevant wording often includes: %s.

Return a single JSON object:
{"found": true, "article_reference": "<as written in the lease, or null>", "summary": "<max 40 words with key facts and numbers>", "key_terms": ["<3-5 key values as separate strings>"]}

If the lease has no such clause, return {"found": false}.

Lease Text:
%s`,

	driven.PromptKeyTerms: `You are a legal analyst abstracting a commercial real estate lease.

Extract the key lease terms as a single JSON object with these fields. Use null for anything not stated in the lease.
{
  "lease_date": "YYYY-MM-DD",
  "tenant_name": "legal name of the tenant entity",
  "trade_name": "trading name of the business",
  "landlord_name": "legal name of the landlord",
  "tenant_address": "tenant address for notices",
  "indemnifier": "name(s) of indemnifier(s)",
  "premises_description": "unit number or description of the premises",
  "rentable_area": 0,
  "commencement_date": "YYYY-MM-DD",
  "expiration_date": "YYYY-MM-DD",
  "term_years": 0,
  "possession_date": "date or description of possession",
  "deposit_amount": 0,
  "rent_schedule": [{"start_year": 1, "end_year": 5, "rate_psf": 0, "monthly_rent": 0, "annual_rent": 0}],
  "renewal_option": "e.g. 2 x 5 years",
  "permitted_use": "allowed business activities",
  "exclusive_use": "exclusivity rights",
  "radius_restriction": "radius restriction details",
  "fixturing_period": "e.g. 90 days free possession",
  "free_rent_period": "free rent granted",
  "improvement_allowance": "tenant improvement allowance"
}

Lease Text:
%s`,

	driven.PromptQueryRouter: `You are a query router for a system that manages commercial real estate leases.

Classify the question into exactly ONE category:
- analytics: asks for a specific value, date, amount or an aggregate across leases (deposit amount, expiry date, lease term, average rent, total deposits, how many leases).
- comparison: asks to compare clauses or terms between two or more leases.
- retrieval: asks what a clause says or how something works (maintenance duties, assignment rules, default remedies).

Return ONLY the single word analytics, comparison or retrieval.

Question: %s`,

	driven.PromptAnswerSystem: `You are a specialised legal assistant reviewing commercial real estate leases.

Instructions:
1. Answer the question using ONLY the numbered context blocks provided.
2. If the answer is not in the context, say: "The provided lease documents do not contain this information."
3. Do not make up information.
4. Cite the blocks you used as [1], [2] and name the lease, article or section where possible.
5. If several leases are involved, keep them clearly apart.
6. End your answer with a line of the form [CONFIDENCE: N%] where N is 0-100.`,
}

// DefaultPrompts returns a copy of the built-in prompt templates.
func DefaultPrompts() map[string]string {
	out := make(map[string]string, len(defaultPrompts))
	for k, v := range defaultPrompts {
		out[k] = v
	}
	return out
}

// loadPrompt loads a prompt from the store, falling back to the default if unavailable.
func loadPrompt(store driven.PromptStore, name string) string {
	if store != nil {
		prompt, err := store.Load(name)
		if err == nil && prompt != "" {
			return prompt
		}
		if err != nil {
			logger.Debug("Prompt %q unavailable, using default: %v", name, err)
		}
	}
	return defaultPrompts[name]
}
