package schema

// georgiaCounties is the closed list of Georgia county names, lowercase.
// "de kalb" is kept alongside "dekalb" because both spellings occur in
// listing data.
var georgiaCounties = []string{
	"appling", "atkinson", "bacon", "baker", "baldwin", "banks", "barrow",
	"bartow", "ben hill", "berrien", "bibb", "bleckley", "brantley", "brooks",
	"bryan", "bulloch", "burke", "butts", "calhoun", "camden", "candler",
	"carroll", "catoosa", "charlton", "chatham", "chattahoochee", "chattooga",
	"cherokee", "clarke", "clay", "clayton", "clinch", "cobb", "coffee",
	"colquitt", "columbia", "cook", "coweta", "crawford", "crisp", "dade",
	"dawson", "decatur", "dekalb", "de kalb", "dodge", "dooly", "dougherty",
	"douglas", "early", "echols", "effingham", "elbert", "emanuel", "evans",
	"fannin", "fayette", "floyd", "forsyth", "franklin", "fulton", "gilmer",
	"glascock", "glynn", "gordon", "grady", "greene", "gwinnett", "habersham",
	"hall", "hancock", "haralson", "harris", "hart", "heard", "henry",
	"houston", "irwin", "jackson", "jasper", "jeff davis", "jefferson",
	"jenkins", "johnson", "jones", "lamar", "lanier", "laurens", "lee",
	"liberty", "lincoln", "long", "lowndes", "lumpkin", "macon", "madison",
	"marion", "mcduffie", "mcintosh", "meriwether", "miller", "mitchell",
	"monroe", "montgomery", "morgan", "murray", "muscogee", "newton", "oconee",
	"oglethorpe", "paulding", "peach", "pickens", "pierce", "pike", "polk",
	"pulaski", "putnam", "quitman", "rabun", "randolph", "richmond", "rockdale",
	"schley", "screven", "seminole", "spalding", "stephens", "stewart",
	"sumter", "talbot", "taliaferro", "tattnall", "taylor", "telfair",
	"terrell", "thomas", "tift", "toombs", "towns", "treutlen", "troup",
	"turner", "twiggs", "union", "upson", "walker", "walton", "ware",
	"warren", "washington", "wayne", "webster", "wheeler", "white", "whitfield",
	"wilcox", "wilkes", "wilkinson", "worth",
}
