// internal/workers/underwriting/proposal-communication/templates.go
package proposalcommunication

const proposalTemplate = `Commercial Auto Insurance Proposal

Insured: {{insuredName}}
Broker: {{brokerName}}
Operation: {{operation}}

Coverage Summary:
- Liability: {{liabilityLimits}}
- Physical Damage: {{pdLimits}} with {{pdDeductible}} deductible
- Hired/Non-Owned Auto: {{hnoaLimits}}

Premium: ${{premium}}
Term: 12 Months
Effective: {{effectiveDate}}

Risk Assessment: Band {{band}} ({{bandLabel}} Risk)
Vehicle Count: {{vehicleCount}}
Base Rate: ${{baseRate}} per vehicle

This proposal is valid for {{validityDays}} days and subject to final underwriting approval.`

const emailTemplate = `Dear {{brokerName}},

I hope this message finds you well. Please find attached the comprehensive commercial auto insurance proposal for your client, {{insuredName}}.

Proposal Summary:
• Annual Premium: ${{premium}}
• Coverage Term: 12 Months
• Fleet Size: {{vehicleCount}} vehicles
• Risk Classification: Band {{band}}

Key Coverage Features:
• Comprehensive liability protection
• Physical damage coverage with competitive deductibles
• Hired and non-owned auto coverage
• Tailored to {{operationLower}} operations

Next Steps:
1. Review the attached proposal details
2. Discuss coverage options with your client
3. Contact our underwriting team with any questions

This proposal reflects our competitive pricing and is valid for {{validityDays}} days from the issue date. We're committed to providing excellent service and comprehensive coverage for your client's commercial auto needs.

Please don't hesitate to reach out if you need any clarification or would like to discuss additional coverage options.

Best regards,
{{signature}}`
