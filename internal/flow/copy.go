package flow

import (
	"fmt"
	"strings"

	"github.com/kotsebot/kotsebot/internal/models"
)

// Static copy tables. The text generator may rephrase some of these; every
// caller must work with these fallbacks alone.

const (
	copyGreetingNew       = "Hi boss! 👋 Welcome po sa aming used car page. Ako na po bahala tumulong maghanap ng unit na swak sa inyo."
	copyGreetingReturning = "Welcome back po, boss! Ituloy natin ang paghahanap ng unit para sa inyo."
	copyRestartAck        = "Sige po, balik tayo sa umpisa. Nabura na po ang mga dating sagot niyo."

	copyAskPlan         = "Para makahanap ako ng swak na unit — cash po ba o financing ang plano niyo?"
	copyAskBudget       = "Magkano po ang cash budget natin? (hal. 500k o ₱450,000)"
	copyAskLocation     = "Saan po kayo nakatira o saang area niyo gustong kumuha ng unit?"
	copyAskBodyType     = "Anong klase pong sasakyan hanap niyo — sedan, SUV, MPV, van, pickup, o hatchback?"
	copyAskTransmission = "Automatic po ba, manual, o kahit alin (any)?"

	copyOffersIntro   = "Eto po ang mga best match para sa inyo:"
	copyOffersChoices = "Reply lang po ng numero (1-4) para piliin, o 'others' para makita ang iba pang options."
	copyNoMatches     = "Pasensya na po, wala akong nakitang unit na pasok sa hanap niyo. Gusto niyo po bang luwagan natin ang budget o palitan ang body type? Reply lang po ng 'widen'."
	copyNoBackup      = "Wala na po akong ibang units na pasok sa hanap niyo. Reply po ng 'widen' para luwagan natin ang filters."
	copyWidenAsk      = "Alin po ang gusto niyong luwagan — body type o budget? Sabihin niyo lang po (hal. 'kahit anong body type' o 'budget 600k')."
	copyPickReprompt  = "Reply lang po ng numero (1-4) para sa napupusuan niyo, o 'others' para sa iba pang units."

	copyAskScheduleSameDay = "Magandang balita po — pwede kayong tumingin ng unit today! Anong oras po kayo available? Pwede rin pong ibang araw, sabihin niyo lang."
	copyAskScheduleNextDay = "Kailan po kayo available tumingin ng unit? Bukas po ang pinakamalapit na schedule, sabihin niyo lang po ang araw at oras."
	copyAskMobile          = "Para po ma-reserve ang viewing slot niyo, paki-send po ng mobile number niyo (hal. 09171234567)."
	copyAskMobileRetry     = "Parang hindi po valid ang number na yan. Paki-send po ulit (hal. 09171234567 o +639171234567)."
	copyAskFullName        = "Salamat po! Ano po ang buong pangalan niyo para sa appointment?"
	copyAskFullNameRetry   = "Paki-send po ang buo niyong pangalan (first name at last name)."
	copyAddressDeflect     = "Ibibigay po namin ang exact na address pagkatapos ma-set ang viewing schedule at contact details niyo. Tuloy lang po tayo. 🙂"

	copyAskIncome      = "Para po sa financing application: saan po galing ang income niyo — employed, business, OFW/seaman, o pension?"
	copyAskIncomeRetry = "Paki-sabi lang po kung employed, may business, OFW/seaman, pensioner, o iba pa ang source of income niyo."
	copyAskTermRetry   = "Paki-reply lang po ng 2, 3, o 4 para sa term na gusto niyo."

	copyDocsReceived = "Received po! ✅ Ipo-process na namin ang application niyo. Tatawagan po kayo ng aming agent within the day. Salamat po!"
	copyDocsReprompt = "Hintayin ko lang po ang picture o file ng documents niyo para maumpisahan ang application. Send lang po dito sa chat."

	copyDoneCash = "Sulit na sulit po ang unit na yan sa cash. Kita-kits po sa viewing! Kung may tanong pa kayo, message lang po."
	copyDone     = "Tapos na po ang booking natin. Kung gusto niyong maghanap ulit ng ibang unit, type lang po ng 'restart'."

	copyInventoryDown = "Pasensya na po, hindi ko ma-check ang listahan ng units ngayon. Paki-try po ulit mamaya. 🙏"
	copyGenericRetry  = "Pasensya na po, nagka-problema sa side namin. Paki-try po ulit."
)

// slotQuestions maps the qualifier's required slot names to their prompts.
var slotQuestions = map[string]string{
	slotPlan:         copyAskPlan,
	slotBudget:       copyAskBudget,
	slotLocation:     copyAskLocation,
	slotBodyType:     copyAskBodyType,
	slotTransmission: copyAskTransmission,
}

// docsCopyByIncome chooses the document ask per declared income source.
var docsCopyByIncome = map[models.IncomeSource]string{
	models.IncomeEmployed: "Para po sa employed: paki-send po ng picture ng 2 valid IDs, latest payslip (1 month), at COE kung meron.",
	models.IncomeBusiness: "Para po sa may business: paki-send po ng picture ng 2 valid IDs, DTI/Mayor's permit, at bank statement (3 months).",
	models.IncomeOFW:      "Para po sa OFW/seaman: paki-send po ng picture ng 2 valid IDs, latest contract o COEC, at proof of remittance (3 months).",
	models.IncomePension:  "Para po sa pensioner: paki-send po ng picture ng 2 valid IDs at pension voucher o bank statement (3 months).",
	models.IncomeOther:    "Paki-send po ng picture ng 2 valid IDs at kahit anong proof of income na meron kayo.",
}

// nudgesByPhase is the idle re-engagement rotation, indexed by attempt count.
var nudgesByPhase = map[models.Phase][]string{
	models.PhaseQualify: {
		"Boss, andito pa po ako kung hinahanap niyo pa ang tamang unit. 🚗 Ituloy lang natin?",
		"Kumusta po? Marami pa po kaming magagandang units na baka swak sa budget niyo.",
		"Last na po ito promise 🙂 — kung gusto niyo pong ituloy ang paghahanap, reply lang po dito.",
	},
	models.PhaseCash: {
		"Boss, naka-reserve pa po ang unit na napili niyo. Tuloy po ba tayo sa viewing?",
		"Baka po ma-late tayo sa unit na gusto niyo — mabilis po maubos ang magagandang units. Ituloy natin?",
		"Huling paalala lang po — andito pa rin po kami kapag handa na kayo mag-viewing.",
	},
	models.PhaseFinancing: {
		"Boss, konting hakbang na lang po para ma-process ang financing niyo. Ituloy po natin?",
		"Kapag po kumpleto na ang details natin, kaya pong maiuwi ang unit within the week. Tuloy po tayo?",
		"Huling paalala lang po — i-message niyo lang po ako kapag handa na kayo ituloy ang application.",
	},
}

// formatPeso renders an amount as ₱ with thousand separators.
func formatPeso(amount int64) string {
	if amount <= 0 {
		return "₱—"
	}
	digits := fmt.Sprintf("%d", amount)
	var b strings.Builder
	b.WriteString("₱")
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
		if len(digits) > lead {
			b.WriteString(",")
		}
	}
	for i := lead; i < len(digits); i += 3 {
		b.WriteString(digits[i : i+3])
		if i+3 < len(digits) {
			b.WriteString(",")
		}
	}
	return b.String()
}

// unitTitle renders the headline line for one presented unit.
func unitTitle(index int, u models.Unit) string {
	parts := []string{}
	for _, p := range []string{u.Year, u.Brand, u.Model, u.Variant} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	title := strings.Join(parts, " ")
	if u.Transmission != "" {
		title += " (" + u.Transmission + ")"
	}
	return fmt.Sprintf("%d. %s", index, title)
}

// unitDetails renders the sub-lines (price block, mileage, location) for a
// presented unit under the given payment plan.
func unitDetails(u models.Unit, plan models.Plan) string {
	var lines []string
	if plan == models.PlanFinancing {
		if u.AllIn > 0 {
			lines = append(lines, "All-in DP: "+formatPeso(u.AllIn))
		}
		var monthlies []string
		for _, term := range []int{2, 3, 4} {
			if m := u.MonthlyForTerm(term); m > 0 {
				monthlies = append(monthlies, fmt.Sprintf("%dyrs %s/mo", term, formatPeso(m)))
			}
		}
		if len(monthlies) > 0 {
			lines = append(lines, "Monthly: "+strings.Join(monthlies, " | "))
		}
	} else if u.SRP > 0 {
		lines = append(lines, "SRP: "+formatPeso(u.SRP))
	}
	if u.Mileage > 0 {
		lines = append(lines, fmt.Sprintf("Mileage: %skm", strings.TrimPrefix(formatPeso(u.Mileage), "₱")))
	}
	loc := u.City
	if loc == "" {
		loc = u.Province
	}
	if loc != "" {
		lines = append(lines, "📍 "+loc)
	}
	return strings.Join(lines, "\n")
}

// slotSummary renders the qualification recap sent before offers.
func slotSummary(slots models.Slots) string {
	var b strings.Builder
	b.WriteString("Eto po ang hanap natin:\n")
	b.WriteString("• Payment: " + string(slots.Plan) + "\n")
	if slots.Budget > 0 {
		b.WriteString("• Budget: " + formatPeso(slots.Budget) + "\n")
	}
	b.WriteString("• Location: " + slots.Location + "\n")
	b.WriteString("• Body type: " + slots.BodyType + "\n")
	b.WriteString("• Transmission: " + string(slots.Transmission) + "\n")
	b.WriteString("Hahanapan ko po kayo ng best na units. Sandali lang po... 🔍")
	return b.String()
}
