package assistant

import (
	"math/rand"
	"strings"
	"sync"
)

const (
	IntentGreeting      = "greeting"
	IntentTenant        = "tenant"
	IntentConsumer      = "consumer"
	IntentProperty      = "property"
	IntentLabour        = "labour"
	IntentFamily        = "family"
	IntentFarmer        = "farmer"
	IntentCitizenRights = "citizen-rights"
	IntentGeneral       = "general"
)

// Picker chooses an index in [0, n).
type Picker interface {
	Pick(n int) int
}

// RandPicker picks with a seeded generator and is safe for concurrent use.
type RandPicker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandPicker(seed int64) *RandPicker {
	return &RandPicker{rng: rand.New(rand.NewSource(seed))}
}

func (p *RandPicker) Pick(n int) int {
	if n <= 1 {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Intn(n)
}

// intentKeywords is checked in order; the first intent with a matching keyword wins.
var intentKeywords = []struct {
	intent   string
	keywords []string
}{
	{IntentTenant, []string{"tenant", "landlord", "rent", "evict", "lease", "deposit"}},
	{IntentConsumer, []string{"consumer", "refund", "defective", "warranty", "seller", "product"}},
	{IntentProperty, []string{"property", "land", "plot", "registry", "mutation", "encroach"}},
	{IntentLabour, []string{"salary", "wage", "employer", "labour", "labor", "fired", "gratuity"}},
	{IntentFamily, []string{"divorce", "custody", "marriage", "maintenance", "dowry", "domestic"}},
	{IntentFarmer, []string{"farmer", "crop", "kisan", "agricultur", "irrigation"}},
	{IntentCitizenRights, []string{"police", "fir", "rti", "arrest", "rights", "bail"}},
	{IntentGreeting, []string{"hello", "hi", "hey", "namaste", "good morning", "good evening"}},
}

var responses = map[string][]string{
	IntentGreeting: {
		"Namaste! I'm your legal assistant. Tell me what happened and I'll point you to the laws that apply.",
		"Hello! Ask me about tenancy, consumer complaints, property, work or family matters.",
	},
	IntentTenant: {
		"Under most state rent control laws a landlord cannot evict you without a court order and proper notice. Keep your rent receipts and the rent agreement safe.",
		"Security deposits are usually refundable at the end of the lease minus documented damages. Send a written request to your landlord first, then approach the Rent Authority if it is ignored.",
	},
	IntentConsumer: {
		"The Consumer Protection Act, 2019 lets you file a complaint with the District Commission for defective goods or deficient services. Keep the bill and any written communication.",
		"You can file a consumer complaint online through the e-Daakhil portal. Claims up to one crore go to the District Commission.",
	},
	IntentProperty: {
		"For land disputes, first collect the sale deed, mutation records and the latest property tax receipts. A title search at the sub-registrar office helps confirm ownership.",
		"Encroachment can be challenged through a civil suit for injunction. Act quickly, since delay weakens interim relief.",
	},
	IntentLabour: {
		"Unpaid wages can be claimed before the Labour Commissioner under the Code on Wages. Keep your appointment letter, salary slips and attendance proof.",
		"If you were terminated without notice you may be entitled to notice pay and gratuity after five years of continuous service.",
	},
	IntentFamily: {
		"Family matters like divorce, maintenance and custody are heard by the Family Court. Mediation is usually attempted first.",
		"A wife, children and dependent parents can claim maintenance under Section 144 of the BNSS. The court looks at income and needs of both sides.",
	},
	IntentFarmer: {
		"PM-KISAN pays eligible farmer families income support in three instalments a year. Check your status on the PM-KISAN portal with your Aadhaar number.",
		"Crop loss from notified calamities can be claimed under PMFBY. Inform the insurer or your bank within 72 hours of the loss.",
	},
	IntentCitizenRights: {
		"Police must register an FIR for a cognizable offence. If they refuse, you can send the complaint in writing to the Superintendent of Police.",
		"Under the RTI Act you can ask any public authority for information. They must reply within 30 days.",
	},
	IntentGeneral: {
		"I can help with tenancy, consumer, property, labour, family and farmer-related questions. Could you share a little more detail?",
		"That sounds important. For advice on your specific facts, consider booking a short consultation with one of our lawyers.",
	},
}

// Responder answers from a fixed response set per intent.
type Responder struct {
	picker Picker
}

func NewResponder(picker Picker) *Responder {
	if picker == nil {
		picker = NewRandPicker(1)
	}
	return &Responder{picker: picker}
}

// DetectIntent maps a message to an intent by keyword.
func DetectIntent(message string) string {
	words := strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	joined := " " + strings.Join(words, " ") + " "
	for _, ik := range intentKeywords {
		for _, kw := range ik.keywords {
			if matchKeyword(joined, kw) {
				return ik.intent
			}
		}
	}
	return IntentGeneral
}

// matchKeyword matches short keywords as whole words and longer ones as word prefixes.
func matchKeyword(text, kw string) bool {
	if len(kw) <= 3 {
		return strings.Contains(text, " "+kw+" ")
	}
	return strings.Contains(text, " "+kw)
}

// Responses returns the fixed response set for an intent.
func Responses(intent string) []string {
	if r, ok := responses[intent]; ok {
		return r
	}
	return responses[IntentGeneral]
}

func (r *Responder) Reply(message string) string {
	set := Responses(DetectIntent(message))
	i := r.picker.Pick(len(set))
	if i < 0 || i >= len(set) {
		i = 0
	}
	return set[i]
}
