package extractors

import "strings"

// signature identifies one technology by substring patterns against the
// page's script sources, link hrefs and meta generator, or by window
// globals probed at render time.
type signature struct {
	name     string
	patterns []string
	globals  []string
}

// Detection tables are ordered; the first matching entry per category wins
// and later entries are not consulted.
var cmsSignatures = []signature{
	{name: "wordpress", patterns: []string{"wp-content", "wp-includes", "/wp-json"}, globals: []string{"wp"}},
	{name: "shopify", patterns: []string{"cdn.shopify", "myshopify.com"}, globals: []string{"Shopify"}},
	{name: "wix", patterns: []string{"wix.com", "wixstatic.com"}, globals: []string{"Wix"}},
	{name: "squarespace", patterns: []string{"squarespace"}, globals: []string{"Squarespace"}},
	{name: "drupal", patterns: []string{"drupal", "/sites/default/files"}},
	{name: "joomla", patterns: []string{"joomla", "/media/jui/"}},
	{name: "webflow", patterns: []string{"webflow", "website-files.com"}},
}

var analyticsSignatures = []signature{
	{name: "google-analytics", patterns: []string{"googletagmanager.com", "google-analytics.com"}, globals: []string{"gtag", "ga", "dataLayer"}},
	{name: "facebook-pixel", patterns: []string{"connect.facebook.net"}, globals: []string{"fbq"}},
	{name: "hotjar", patterns: []string{"hotjar"}, globals: []string{"hj"}},
	{name: "clarity", patterns: []string{"clarity.ms"}, globals: []string{"clarity"}},
}

var marketingSignatures = []signature{
	{name: "hubspot", patterns: []string{"hs-scripts", "hubspot"}, globals: []string{"hbspt", "_hsq"}},
	{name: "mailchimp", patterns: []string{"chimpstatic", "mailchimp", "list-manage.com"}},
	{name: "klaviyo", patterns: []string{"klaviyo"}, globals: []string{"_learnq"}},
	{name: "marketo", patterns: []string{"marketo", "munchkin"}},
}

var paymentSignatures = []signature{
	{name: "stripe", patterns: []string{"js.stripe.com"}, globals: []string{"Stripe"}},
	{name: "paypal", patterns: []string{"paypal.com/sdk", "paypalobjects.com"}, globals: []string{"paypal"}},
	{name: "square", patterns: []string{"squareup.com", "squarecdn.com"}, globals: []string{"Square"}},
	{name: "shopify-payments", patterns: []string{"shopifycloud/checkout", "shop_pay"}},
}

// matchSignature returns the name of the first table entry whose patterns hit
// the lowercased haystack or whose globals were seen on the page, or ""
// when nothing in the table matches.
func matchSignature(table []signature, haystack string, globals map[string]bool) string {
	for _, sig := range table {
		for _, pattern := range sig.patterns {
			if strings.Contains(haystack, pattern) {
				return sig.name
			}
		}
		for _, g := range sig.globals {
			if globals[g] {
				return sig.name
			}
		}
	}
	return ""
}
