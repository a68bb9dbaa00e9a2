package mysql

// LAST_INSERT_ID(id) makes the existing row id visible to LastInsertId on
// the update path.
const upsertPlaceSQL = `
INSERT INTO places
  (place_key, category, run_id, name, address, phone, website, rating, total_reviews, collected_reviews, url)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  id                = LAST_INSERT_ID(id),
  run_id            = VALUES(run_id),
  name              = VALUES(name),
  address           = COALESCE(NULLIF(VALUES(address), ''), places.address),
  phone             = COALESCE(NULLIF(VALUES(phone), ''), places.phone),
  website           = COALESCE(NULLIF(VALUES(website), ''), places.website),
  rating            = VALUES(rating),
  total_reviews     = VALUES(total_reviews),
  collected_reviews = VALUES(collected_reviews),
  url               = VALUES(url),
  updated_at        = CURRENT_TIMESTAMP
`

// Note: `text` and `time` are keywords; keep them quoted everywhere.
const insertReviewsPrefix = "INSERT INTO reviews\n  (place_id, dedup_key, position, author, rating, `text`, `time`)\nVALUES "

const insertReviewsOnDup = " ON DUPLICATE KEY UPDATE\n" +
	"  position = VALUES(position),\n" +
	"  rating   = VALUES(rating),\n" +
	"  `text`   = VALUES(`text`)\n"

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const placeColumns = `id, name, address, phone, website, rating, total_reviews, collected_reviews, url, category, run_id`

const getPlaceSQL = `SELECT ` + placeColumns + ` FROM places WHERE id = ?`

// Empty category lists every category.
const listPlacesSQL = `
SELECT ` + placeColumns + `
FROM places
WHERE (? = '' OR category = ?)
ORDER BY id DESC
LIMIT ?`

const listReviewsSQL = "SELECT author, `text`, rating, `time` FROM reviews WHERE place_id = ? ORDER BY position, id LIMIT ?"
