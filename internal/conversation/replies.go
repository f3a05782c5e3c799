package conversation

import (
	"fmt"
	"strings"

	"github.com/aydinemre/menubot-backend/internal/catalog"
	"github.com/aydinemre/menubot-backend/internal/geo"
	"github.com/aydinemre/menubot-backend/internal/outbound"
	"github.com/aydinemre/menubot-backend/pkg/db/models"
	"github.com/aydinemre/menubot-backend/pkg/enums"
)

// Interactive reply IDs echoed back by WhatsApp when the customer taps.
const (
	selectionPayCash    = "pay_cash"
	selectionPayCard    = "pay_card"
	addressSelectPrefix = "addr_"
)

const (
	replyGreeting         = "Merhaba! Sipariş vermek için ne istediğinizi yazabilirsiniz, menüyü görmek için \"menü\" yazın."
	replyThanks           = "Rica ederiz, afiyet olsun!"
	replyHelp             = "Sipariş vermek için istediğiniz ürünleri yazmanız yeterli, örneğin \"2 kola ve 1 dürüm\". Menü için \"menü\" yazın."
	replyUnknown          = "Sizi tam anlayamadım. Sipariş vermek için ürün adı yazabilir, menü için \"menü\" yazabilirsiniz."
	replyUnsupportedMedia = "Şu an yalnızca yazılı mesajları işleyebiliyorum. Siparişinizi yazarak iletebilir misiniz?"
	replyClarifyGeneric   = "Siparişinizi tam anlayamadım, biraz daha açar mısınız?"
	replyHandoff          = "Şu an size yardımcı olamıyorum, bir temsilcimiz en kısa sürede dönüş yapacak."
	replyResetDone        = "Baştan başlıyoruz. Yeni siparişinizi yazabilirsiniz."
	replyCancelled        = "Siparişiniz iptal edildi. Yeni bir sipariş için yazmanız yeterli."
	replyCartEmptied      = "Sepetiniz boşaldı. Yeni bir sipariş için yazmanız yeterli."
	replyConfirmPrompt    = "Onaylıyor musunuz? Onaylamak için \"evet\", değiştirmek için eklemek veya çıkarmak istediğinizi yazın."
	replyReviewPrompt     = "Siparişinizi onaylıyor musunuz? \"evet\" yazarsanız teslimat adımına geçiyoruz."
	replyEditPrompt       = "Tabii, siparişinizde neyi değiştirmek istersiniz?"
	replyLocationAsk      = "Teslimat için konumunuzu paylaşır mısınız?"
	replyLocationTooEarly = "Konumunuzu sipariş tamamlanınca isteyeceğim. Önce siparişinizi yazabilirsiniz."
	replyLocationRemind   = "Devam edebilmem için konumunuzu paylaşmanız gerekiyor."
	replySavedAddressAsk  = "Kayıtlı adreslerinizden birini de seçebilirsiniz."
	replyPaymentAsk       = "Ödemeyi nasıl yapmak istersiniz?"
	replyCardUnavailable  = "Kartla ödeme şu an kullanılamıyor. Dilerseniz kapıda nakit ödeyebilirsiniz."
	replyPaymentFailed    = "Ödeme alınamadı. Tekrar denemek için bağlantıyı kullanabilir veya \"nakit\" yazabilirsiniz."
	replyLinkExpired      = "Ödeme bağlantısının süresi doldu. Ödeme yöntemini tekrar seçer misiniz?"
)

func paymentButtons() outbound.Message {
	return outbound.Buttons(replyPaymentAsk,
		outbound.Button{ID: selectionPayCash, Title: "Nakit"},
		outbound.Button{ID: selectionPayCard, Title: "Kart"},
	)
}

func savedAddressList(addresses []models.CustomerAddress) outbound.Message {
	rows := make([]outbound.ListRow, 0, len(addresses))
	for _, address := range addresses {
		row := outbound.ListRow{
			ID:    addressSelectPrefix + address.ID.String(),
			Title: address.Label,
		}
		if address.AddressText != nil {
			row.Description = *address.AddressText
		}
		rows = append(rows, row)
	}
	return outbound.List(replySavedAddressAsk,
		outbound.ListSection{Title: "Kayıtlı adresler", Rows: rows})
}

func summaryReply(summary string) string {
	return fmt.Sprintf("Siparişiniz:\n%s\n\n%s", summary, replyConfirmPrompt)
}

func reviewReply(summary string) string {
	return fmt.Sprintf("Siparişiniz:\n%s\n\n%s", summary, replyReviewPrompt)
}

func outOfAreaReply(result *geo.CheckResult) string {
	var b strings.Builder
	b.WriteString("Maalesef bu konuma teslimat yapamıyoruz.")
	if len(result.Alternatives) > 0 {
		b.WriteString(" Size en yakın şubelerimiz:\n")
		for _, alt := range result.Alternatives {
			fmt.Fprintf(&b, "- %s (%.1f km)\n", alt.Store.Name, alt.DistanceMeters/1000)
		}
		b.WriteString("Farklı bir konum paylaşabilirsiniz.")
	} else {
		b.WriteString(" Farklı bir konum paylaşabilirsiniz.")
	}
	return b.String()
}

func minBasketNote(minBasketKurus int) string {
	return fmt.Sprintf("Not: bu bölge için minimum sepet tutarı %s.", catalog.FormatKurus(minBasketKurus))
}

func minBasketReply(minBasketKurus, totalKurus int) string {
	return fmt.Sprintf("Bu bölge için minimum sepet tutarı %s, sepetiniz şu an %s. Birkaç ürün daha ekler misiniz?",
		catalog.FormatKurus(minBasketKurus), catalog.FormatKurus(totalKurus))
}

func confirmedReply(order *models.Order) string {
	number := int64(0)
	if order.OrderNumber != nil {
		number = *order.OrderNumber
	}
	total := order.TotalKurus + order.DeliveryFeeKurus
	var b strings.Builder
	fmt.Fprintf(&b, "Siparişiniz alındı! Sipariş numaranız: %d\n", number)
	if order.DeliveryFeeKurus > 0 {
		fmt.Fprintf(&b, "Teslimat ücreti: %s\n", catalog.FormatKurus(order.DeliveryFeeKurus))
	}
	fmt.Fprintf(&b, "Ödenecek tutar: %s", catalog.FormatKurus(total))
	if order.PaymentMethod != nil {
		switch *order.PaymentMethod {
		case enums.PaymentMethodCash:
			b.WriteString(" (kapıda nakit)")
		case enums.PaymentMethodCard:
			b.WriteString(" (kartla ödendi)")
		}
	}
	return b.String()
}

func paymentLinkReply(url string) string {
	return fmt.Sprintf("Ödemenizi bu bağlantıdan tamamlayabilirsiniz:\n%s", url)
}

func clarifyItemsReply(names []string) string {
	if len(names) == 0 {
		return replyClarifyGeneric
	}
	return fmt.Sprintf("Şu ürünlerden emin olamadım: %s. Hangisini istediğinizi biraz daha açar mısınız?",
		strings.Join(names, ", "))
}
