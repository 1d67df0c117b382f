package help

// ColdstartYAML is the quickstart reference printed by the quickstart
// command, YAML so it can be piped into yq.
const ColdstartYAML = `# catops Quick Start

credentials:
  SHOPIFY_STORE: "my-shop or my-shop.myshopify.com (required)"
  SHOPIFY_ACCESS_TOKEN: "Admin API access token (required)"
  GOOGLE_API_KEY: "Gemini key, cheap tier (optional)"
  ANTHROPIC_API_KEY: "Claude key, accurate tier (optional)"

policies:
  escalate: "Cheap tier first, accurate tier on ambiguous results (default)"
  cheapest-first: "Cheap tier only, accept whatever it says"
  accurate: "Straight to the accurate tier"

modes:
  dry-run: "Default everywhere; plans are computed and reported, nothing mutates"
  execute: "Opt in with --execute; snapshots are captured before every mutation"

commands:
  detect_hidden_variants: |
    catops variants analyze --vendor "Acme" --limit 100

  apply_saved_report: |
    catops variants apply --report variant_report.json --execute

  resume_interrupted_run: |
    catops variants analyze --resume

  hide_wholesale_listings: |
    catops curate --execute

  quality_audit: |
    catops audit --bottom 30 --out audit.json

  verify_listing_images: |
    catops images verify --vendor "Cloud YHS"

  batch_discount: |
    catops discount --percent 25 --type "Candles" --execute

  inspect_runs: |
    catops runs list
    catops runs show <run-id>
    catops costs <run-id>

  undo_a_run: |
    catops rollback --run <run-id> --execute

error_behavior:
  - "Missing credentials for a required collaborator: fatal before any batch work"
  - "Per-item model or catalog failures: recorded on the item, batch continues"
  - "Policy limit breaches: reported as skips with the violated limit named"
`
