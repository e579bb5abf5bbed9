package action

import "github.com/sweetpotato0/support-assistant/schema"

// prototypeEntry keeps the label-to-exemplar mapping ordered so prototype
// iteration (and therefore tie-breaking on equal similarity) is stable.
type prototypeEntry struct {
	action  schema.Action
	phrases []string
}

// prototypes maps every action label, including "none", to canonical
// exemplar phrases describing when that action applies. The table is fixed;
// each phrase is embedded once at startup.
var prototypes = []prototypeEntry{
	{
		action: schema.ActionEscalateAbuse,
		phrases: []string{
			"Domain suspended for phishing, malware, or spam",
			"Abuse complaint requires review by the Abuse Team",
			"Support must not manually reactivate this domain",
			"This suspension is due to a policy violation or abuse report",
		},
	},
	{
		action: schema.ActionEscalateBilling,
		phrases: []string{
			"Billing dispute involving charges, refunds, or invoices",
			"Customer reports duplicate charge or payment failure",
			"Domain suspended due to unpaid invoice or payment issue",
			"Refund eligibility must be reviewed by Billing Team",
		},
	},
	{
		action: schema.ActionEscalateTech,
		phrases: []string{
			"Domain is active but DNS is not resolving",
			"Service outage or technical failure after renewal",
			"System issue where services remain offline unexpectedly",
			"Technical investigation required for infrastructure failure",
		},
	},
	{
		action: schema.ActionEscalateSupport,
		phrases: []string{
			"Domain suspended due to WHOIS verification issues",
			"Customer reports domain still suspended after completing WHOIS verification",
			"Support needs to review account status and system flags",
			"Manual review required for non-abuse domain suspension",
		},
	},
	{
		action: schema.ActionCustomerRequired,
		phrases: []string{
			"Customer must verify WHOIS email address",
			"Registrant information must be updated to restore domain",
			"User needs to unlock the domain before transfer",
			"Customer must complete remediation steps",
		},
	},
	{
		action: schema.ActionFollowUp,
		phrases: []string{
			"Reactivation will occur after review is completed",
			"Support will monitor and follow up after verification",
			"Additional review time is required before action",
		},
	},
	{
		action: schema.ActionNone,
		phrases: []string{
			"General informational question about domains",
			"Explanation of policy without required action",
			"Customer is asking how the system works",
			"No action is required from support or customer",
		},
	},
}
