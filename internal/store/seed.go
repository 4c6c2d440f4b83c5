package store

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xiy/faq-search/pkg/types"
)

// SampleFAQs returns the built-in demo corpus.
func SampleFAQs() []types.FAQRecord {
	return []types.FAQRecord{
		{Question: "How do I reset my password?", Answer: "You can reset your password by clicking 'Forgot Password' on the login page."},
		{Question: "What are the shipping costs?", Answer: "Shipping is free for orders over $50, otherwise a flat rate of $5 applies."},
		{Question: "Can I return an item?", Answer: "Yes, items can be returned within 30 days of purchase with original packaging."},
		{Question: "How long does shipping take?", Answer: "Standard shipping takes 3-5 business days."},
		{Question: "Do you offer international shipping?", Answer: "We currently ship to the US, Canada, and Mexico."},
		{Question: "What payment methods do you accept?", Answer: "We accept Visa, MasterCard, American Express, and PayPal."},
		{Question: "How can I track my order?", Answer: "You can track your order using the tracking number sent in your confirmation email."},
		{Question: "Are there any discounts available?", Answer: "We offer student and military discounts. Check our website for current promotions."},
		{Question: "What is your privacy policy?", Answer: "We do not sell personal data and use encryption to protect your information."},
		{Question: "How do I contact customer support?", Answer: "You can reach our support team via email at support@example.com or call 1-800-SUPPORT."},
	}
}

type seedFile struct {
	FAQs []types.FAQRecord `yaml:"faqs"`
}

// LoadSeedFile reads a YAML document of the form:
//
//	faqs:
//	  - question: ...
//	    answer: ...
func LoadSeedFile(path string) ([]types.FAQRecord, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var doc seedFile
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse seed yaml: %w", err)
	}
	if len(doc.FAQs) == 0 {
		return nil, errors.New("seed file contains no faqs")
	}
	return doc.FAQs, nil
}
