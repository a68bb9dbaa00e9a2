package browser

// Map markup selectors. Google rotates these class names, so they live in
// one place.
const (
	SearchBaseURL = "https://www.google.com/maps/search/"

	// Result feed
	FeedSelector        = `div[role="feed"]`
	ListingNodeSelector = `div.Nv2PK`
	ListingName         = `.qBF1Pd`
	ListingRating       = `.MW4etd`
	ListingReviewCount  = `.UY7F9`
	ListingLink         = `a.hfpxzc`

	// Detail page
	ReviewsTabSelector = `button[aria-label*="Reviews for"]`
	AddressSelector    = `button.CsEnBe[data-item-id="address"]`
	PhoneSelector      = `button.CsEnBe[data-tooltip="Copy phone number"]`
	WebsiteSelector    = `a[data-item-id="authority"]`

	// Reviews
	ReviewNodeSelector = `div.jftiEf`
	ReviewAuthor       = `div.d4r55`
	ReviewTime         = `span.rsqaWe`
	ReviewText         = `span.wiI7pd`
	ReviewRating       = `span.kvMYJc`
)

const (
	scrollFeedScript   = `(function () {
  const feed = document.querySelector('div[role="feed"]');
  if (!feed) { return false; }
  feed.scrollTop = feed.scrollHeight;
  return true;
})();`
	scrollWindowScript = `window.scrollTo(0, document.body.scrollHeight);`
	pageHeightScript   = `document.body.scrollHeight`
	consentScript      = `(function () {
  const selectors = [
    'button[aria-label="Accept all"]',
    'button[aria-label="I agree"]',
    'button[aria-label="Alles akzeptieren"]',
    'button.VfPpkd-LgbsSe-OWXEXe-k8QpJ'
  ];
  for (const sel of selectors) {
    const btn = document.querySelector(sel);
    if (btn) { btn.click(); return true; }
  }
  return false;
})();`
)
