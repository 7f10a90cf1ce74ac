package extract

// extractionPrompt asks the model for the invoice fields the validation
// engine consumes, with values transcribed verbatim as strings.
const extractionPrompt = `Examine this vendor invoice and extract ALL information.

This is a financial document. Transcribe values EXACTLY as printed,
including currency symbols, thousands separators, and date formats.
Every value must be a string; do NOT normalize or reformat.

HEADER FIELDS:
- vendor_name: The issuing vendor's company name
- invoice_number: The invoice number or reference
- invoice_date: The issue date as printed
- due_date: The payment due date as printed
- currency: ISO 4217 code if printed (e.g. USD, EUR), else the symbol seen
- po_number: Purchase order reference if printed
- payment_terms: Payment terms as printed (e.g. "Net 30")
- subtotal: Subtotal before tax
- tax: Total tax amount
- total: Grand total payable

LINE ITEMS - extract ALL rows of the item table:
- description: Item description
- quantity: Quantity as printed
- unit_price: Unit price as printed
- amount: Line amount as printed

CONFIDENCE - your own reading confidence:
- overall: number 0.0-1.0 for the whole document
- fields: map from header field name to 0.0-1.0 for fields you are
  unsure about (omit fields you read clearly)

Return a JSON object with this exact structure:
{
  "header": {
    "vendor_name": "string",
    "invoice_number": "string",
    "invoice_date": "string",
    "due_date": "string",
    "currency": "string",
    "po_number": "string",
    "payment_terms": "string",
    "subtotal": "string",
    "tax": "string",
    "total": "string"
  },
  "lines": [{"description": "string", "quantity": "string", "unit_price": "string", "amount": "string"}],
  "confidence": {"overall": number, "fields": {"field_name": number}}
}

IMPORTANT:
- Extract EXACTLY what you see. Do not guess or make up values.
- If a field is not printed on the invoice, use empty string "".
- Never invent line items.`
