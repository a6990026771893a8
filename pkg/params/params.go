// Package params holds the built-in table of tracking query parameters,
// grouped by the platform or purpose that introduces them.
//
// The table is fixed at compile time. Accessors hand out copies so callers
// can never mutate it.
package params

// Category names a fixed group of related tracking parameters.
type Category string

const (
	Google    Category = "google"
	Facebook  Category = "facebook"
	Microsoft Category = "microsoft"
	Social    Category = "social"
	Email     Category = "email"
	Amazon    Category = "amazon"
	Generic   Category = "generic"
)

// UTMPrefix is removed regardless of the enabled categories.
const UTMPrefix = "utm_"

// order is the display and default-enable order of the categories.
var order = []Category{Google, Facebook, Microsoft, Social, Email, Amazon, Generic}

var table = map[Category][]string{
	Google: {
		"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
		"gclid", "gclsrc", "dclid", "gbraid", "wbraid", "_ga", "_gl",
	},
	Facebook: {
		"fbclid", "fb_action_ids", "fb_action_types", "fb_source", "fb_ref",
	},
	Microsoft: {
		"msclkid", "ms_clkid",
	},
	Social: {
		"twclid", "tw_source", "ref_src", "ref_url", // Twitter
		"li_fat_id", "lipi", "licu", // LinkedIn
		"ttclid", "tt_medium", "tt_content", // TikTok
		"igshid", "igsh", // Instagram
	},
	Email: {
		"mc_cid", "mc_eid", // Mailchimp
		"_hsenc", "_hsmi", // HubSpot
		"vero_id", "vero_conv",
	},
	Amazon: {
		"ref", "ref_", "pf_rd_r", "pf_rd_p", "pf_rd_m", "pf_rd_s", "pf_rd_t", "pf_rd_i",
		"pd_rd_r", "pd_rd_w", "pd_rd_wg",
	},
	Generic: {
		"sessionid", "session_id", "sid",
		"cvid", "oicd", "clickid",
		"affid", "affiliate", "aff_id", "aff_sub",
		"zanpid", "kclickid", "aclk",
		"src", "source",
		"pcrid", "pmt", "pkw",
		"ncid", "sr_share",
	},
}

// Categories returns every known category in display order.
func Categories() []Category {
	out := make([]Category, len(order))
	copy(out, order)
	return out
}

// Names returns every known category name in display order.
func Names() []string {
	out := make([]string, len(order))
	for i, c := range order {
		out[i] = string(c)
	}
	return out
}

// Lookup returns the parameters of a category and whether it exists.
func Lookup(name string) ([]string, bool) {
	p, ok := table[Category(name)]
	if !ok {
		return nil, false
	}
	out := make([]string, len(p))
	copy(out, p)
	return out, true
}

// IsKnown reports whether name is a built-in category.
func IsKnown(name string) bool {
	_, ok := table[Category(name)]
	return ok
}

// Each calls fn for every parameter of the named category, in table order.
// Unknown categories are silently skipped.
func Each(name string, fn func(param string)) {
	for _, p := range table[Category(name)] {
		fn(p)
	}
}

// CategoryOf returns the first category (in display order) that lists param.
func CategoryOf(param string) (Category, bool) {
	for _, c := range order {
		for _, p := range table[c] {
			if p == param {
				return c, true
			}
		}
	}
	return "", false
}
